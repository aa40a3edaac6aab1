package parser

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// MaxDocumentRunes hujjat matnining maksimal uzunligi
const MaxDocumentRunes = 5000

const truncatedSuffix = "... [content truncated due to length]"

// ExtractText hujjatdan matn ajratish. Matnli fayllar o'zgarishsiz,
// .xlsx sheet larga bo'lib tab bilan, PDF sahifalar matni.
// O'qib bo'lmasa placeholder qaytadi.
func ExtractText(name string, data []byte) string {
	var text string
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		flat, err := flattenWorkbook(data)
		if err != nil {
			return unableToExtract(name)
		}
		text = flat
	case ".pdf":
		plain, err := pdfText(data)
		if err != nil || strings.TrimSpace(plain) == "" {
			return unableToExtract(name)
		}
		text = plain
	default:
		if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
			return unableToExtract(name)
		}
		text = string(data)
	}
	return Truncate(text)
}

// Truncate MaxDocumentRunes dan uzun matnni qisqartirish
func Truncate(text string) string {
	if utf8.RuneCountInString(text) <= MaxDocumentRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxDocumentRunes]) + truncatedSuffix
}

func unableToExtract(name string) string {
	return fmt.Sprintf("[Unable to extract text from %s]", name)
}

func flattenWorkbook(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "Sheet: %s\n", sheet)
		for _, row := range rows {
			if isEmptyRow(row) {
				continue
			}
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// pdfText barcha sahifalardagi matn; buzilgan fayllarda kutubxona panic qilishi mumkin
func pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

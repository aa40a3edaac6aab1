package repository

import (
	"context"

	"github.com/fingenie/assistant/internal/domain/entity"
)

// TaxWorkbook Excel fayllar bilan ishlash uchun interface
type TaxWorkbook interface {
	// ParseInput Excel fayldan TaxInput o'qish
	ParseInput(ctx context.Context, data []byte) (entity.TaxInput, error)

	// WriteReport hisobotni xlsx formatida yozish
	WriteReport(ctx context.Context, report entity.TaxReport) ([]byte, error)
}

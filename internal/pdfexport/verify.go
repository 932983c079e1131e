package pdfexport

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// Validation needs no user configuration directory.
	model.ConfigPath = "disable"
}

// VerifyPDF validates data and returns its page count.
func VerifyPDF(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return 0, fmt.Errorf("failed to validate PDF: %w", err)
	}
	pageCount, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return pageCount, nil
}

package attachment

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

var supportedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Validator checks that a downloaded proof document (cheque scan,
// proforma, quote) is actually readable before it is referenced from a
// funding request.
type Validator struct {
	logger *zap.Logger
}

// NewValidator creates a proof validator.
func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{logger: logger}
}

// Validate opens the document and checks it renders at least one page.
func (v *Validator) Validate(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		return fmt.Errorf("unsupported proof type %q", ext)
	}

	doc, err := fitz.New(path)
	if err != nil {
		return fmt.Errorf("failed to open proof document: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return fmt.Errorf("proof document %s has no pages", filepath.Base(path))
	}

	v.logger.Debug("Proof document validated",
		zap.String("path", path),
		zap.Int("pages", doc.NumPage()))
	return nil
}

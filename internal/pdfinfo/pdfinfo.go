package pdfinfo

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrEncrypted reports a document that cannot be read without a password.
var ErrEncrypted = errors.New("pdf is encrypted")

// Info summarises a PDF document.
type Info struct {
	Version   string
	Pages     int
	Encrypted bool
}

var disableConfigDir sync.Once

func configuration() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

// Inspect reads path and reports its version, page count and whether it
// carries an encryption dictionary. Documents that need a user password
// return Info{Encrypted: true} together with ErrEncrypted.
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	ctx, err := api.ReadAndValidate(f, configuration())
	if err != nil {
		if looksEncrypted(err) {
			return Info{Encrypted: true}, fmt.Errorf("%w: %s", ErrEncrypted, path)
		}
		return Info{}, fmt.Errorf("read pdf %s: %w", path, err)
	}
	return Info{
		Version:   ctx.VersionString(),
		Pages:     ctx.PageCount,
		Encrypted: ctx.Encrypt != nil,
	}, nil
}

func looksEncrypted(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "encrypt")
}

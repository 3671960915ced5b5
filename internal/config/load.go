package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a config file syntax.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// DefaultPath returns ~/.nativedbg/config.toml.
func DefaultPath() (string, error) {
	return expandHome("~/.nativedbg/config.toml")
}

// Load reads the config file at path over the defaults, applies NATIVEDBG_
// environment overrides and validates the result. A missing file is not an
// error; an empty path skips the file.
func Load(path string) (Options, error) {
	return LoadWithEnv(path, os.Environ())
}

// LoadWithEnv is Load with an explicit environment in os.Environ form.
func LoadWithEnv(path string, environ []string) (Options, error) {
	opts := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return opts, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			format, err := FormatOf(path)
			if err != nil {
				return opts, err
			}
			if err := decode(path, format, data, &opts); err != nil {
				return opts, err
			}
		}
	}
	if err := applyEnv(&opts, EnvPrefix, environ); err != nil {
		return opts, err
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// Decode reads options in format from r over the defaults. It neither
// applies the environment nor validates.
func Decode(r io.Reader, format Format) (Options, error) {
	opts := Default()
	data, err := io.ReadAll(r)
	if err != nil {
		return opts, fmt.Errorf("reading config: %w", err)
	}
	err = decode("<reader>", format, data, &opts)
	return opts, err
}

func decode(source string, format Format, data []byte, opts *Options) error {
	switch format {
	case FormatTOML:
		d := toml.NewDecoder(bytes.NewReader(data))
		d.DisallowUnknownFields()
		if err := d.Decode(opts); err != nil {
			perr := &ParseError{Path: source, Message: err.Error(), Err: err}
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				perr.Line, perr.Column = derr.Position()
			}
			var serr *toml.StrictMissingError
			if errors.As(err, &serr) {
				perr.Message = serr.String()
			}
			return perr
		}
	case FormatYAML:
		d := yaml.NewDecoder(bytes.NewReader(data))
		d.KnownFields(true)
		if err := d.Decode(opts); err != nil && !errors.Is(err, io.EOF) {
			return &ParseError{Path: source, Message: err.Error(), Err: err}
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return nil
}

// Encode writes opts to w in format.
func Encode(w io.Writer, opts Options, format Format) error {
	switch format {
	case FormatTOML:
		enc := toml.NewEncoder(w)
		enc.SetIndentTables(true)
		return enc.Encode(opts)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(opts); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

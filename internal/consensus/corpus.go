package consensus

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/jonathan/credit-quality/internal/schemas"
	"github.com/jonathan/credit-quality/internal/types"
)

// LoadCorpus reads a baseline corpus file. A missing file or empty path yields an empty
// corpus, since unseen documents are expected; an unreadable, malformed or schema-invalid
// file is a BaselineLoadError.
func LoadCorpus(path string) (types.BaselineCorpus, error) {
	if path == "" {
		return types.BaselineCorpus{}, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return types.BaselineCorpus{}, nil
	}
	if err != nil {
		return nil, &BaselineLoadError{Path: path, Message: "failed to read file", Cause: err}
	}

	corpus, err := ParseCorpus(data)
	if err != nil {
		var loadErr *BaselineLoadError
		if errors.As(err, &loadErr) {
			loadErr.Path = path
		}
		return nil, err
	}
	return corpus, nil
}

// ParseCorpus validates and decodes corpus file content.
func ParseCorpus(data []byte) (types.BaselineCorpus, error) {
	if err := schemas.ValidateBaselineCorpus(data); err != nil {
		return nil, &BaselineLoadError{Path: "(inline)", Message: "corpus does not match baseline schema", Cause: err}
	}

	var corpus types.BaselineCorpus
	if err := json.Unmarshal(data, &corpus); err != nil {
		return nil, &BaselineLoadError{Path: "(inline)", Message: "failed to decode corpus", Cause: err}
	}
	if corpus == nil {
		corpus = types.BaselineCorpus{}
	}
	return corpus, nil
}

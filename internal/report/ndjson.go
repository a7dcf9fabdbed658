package report

import (
	"context"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/Dicklesworthstone/diskpulse/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONStream writes each report as one JSON line.
type JSONStream struct {
	enc *jsoniter.Encoder
}

func NewJSONStream(w io.Writer) *JSONStream {
	return &JSONStream{enc: json.NewEncoder(w)}
}

func (j *JSONStream) Emit(_ context.Context, r model.Report) error {
	return errors.Wrap(j.enc.Encode(r), "encode report")
}

func (j *JSONStream) Close() error { return nil }

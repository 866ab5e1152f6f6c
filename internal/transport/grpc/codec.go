package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// JSONContentSubtype selects jsonCodec on a call: clients pass
// grpc.CallContentSubtype(JSONContentSubtype) and the content type on the
// wire becomes application/grpc+json.
const JSONContentSubtype = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return JSONContentSubtype
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

package vault

import (
	"encoding/base64"
	"fmt"

	"wallet/types"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// encodeRecord serializes a vault as a protobuf Struct
// {id, insensitive, sensitive(base64)}.
func encodeRecord(v *types.Vault) ([]byte, error) {
	insensitive, err := types.ToPlain(v.Insensitive)
	if err != nil {
		return nil, err
	}
	s, err := structpb.NewStruct(map[string]any{
		"id":          v.ID,
		"insensitive": map[string]any(insensitive),
		"sensitive":   base64.StdEncoding.EncodeToString(v.Sensitive),
	})
	if err != nil {
		return nil, fmt.Errorf("vault %s record: %w", v.ID, err)
	}
	return proto.Marshal(s)
}

func decodeRecord(data []byte) (*types.Vault, error) {
	s := &structpb.Struct{}
	if err := proto.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode vault record: %w", err)
	}
	m := s.AsMap()

	id, _ := m["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("vault record without id")
	}
	insensitive, _ := m["insensitive"].(map[string]any)
	if insensitive == nil {
		insensitive = types.PlainObject{}
	}
	encoded, _ := m["sensitive"].(string)
	sensitive, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("vault %s sensitive: %w", id, err)
	}
	return &types.Vault{ID: id, Insensitive: insensitive, Sensitive: sensitive}, nil
}

package registry

import (
	"fmt"
	"strconv"
	"strings"

	"sync-shuttle/internal/config"
	"sync-shuttle/internal/shuttle"
)

// Profile field names as they appear in the registry document.
const (
	FieldName         = "name"
	FieldHost         = "host"
	FieldPort         = "port"
	FieldUser         = "user"
	FieldIdentityFile = "identity_file"
	FieldRemoteBase   = "remote_base"
	FieldEnabled      = "enabled"
	FieldS3Backup     = "s3_backup"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindPort
	kindBool
)

// fieldKinds is the closed set of settable fields and their value types.
var fieldKinds = map[string]fieldKind{
	FieldName:         kindString,
	FieldHost:         kindString,
	FieldPort:         kindPort,
	FieldUser:         kindString,
	FieldIdentityFile: kindString,
	FieldRemoteBase:   kindString,
	FieldEnabled:      kindBool,
	FieldS3Backup:     kindBool,
}

// Fields returns the settable field names in export order.
func Fields() []string {
	return []string{FieldName, FieldHost, FieldPort, FieldUser, FieldIdentityFile, FieldRemoteBase, FieldEnabled, FieldS3Backup}
}

// coerce converts a raw command-line value to the type its field stores.
func coerce(field, raw string) (any, error) {
	kind, ok := fieldKinds[field]
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q (expected one of %s)", shuttle.ErrInvalidValue, field, strings.Join(Fields(), ", "))
	}
	switch kind {
	case kindPort:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 || n > 65535 {
			return nil, fmt.Errorf("%w: %s must be an integer in 1..65535, got %q", shuttle.ErrInvalidValue, field, raw)
		}
		return n, nil
	case kindBool:
		switch strings.ToLower(raw) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("%w: %s must be true or false, got %q", shuttle.ErrInvalidValue, field, raw)
	default:
		return raw, nil
	}
}

// defaultFields is the field set installed by Add, in document order.
func defaultFields(id string) []config.Field {
	return []config.Field{
		{Key: FieldName, Value: id},
		{Key: FieldHost, Value: ""},
		{Key: FieldPort, Value: int64(shuttle.DefaultPort)},
		{Key: FieldUser, Value: ""},
		{Key: FieldRemoteBase, Value: ""},
		{Key: FieldEnabled, Value: false},
		{Key: FieldS3Backup, Value: false},
	}
}

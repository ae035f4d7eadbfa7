package utils

import (
	"strings"

	"github.com/google/uuid"
)

// dataSourceIDPrefix marks profile ids generated on this side of the wire.
const dataSourceIDPrefix = "ds-"

// GenerateSessionID returns a fresh console session id.
func GenerateSessionID() string {
	return uuid.New().String()
}

// GenerateDataSourceID returns an id of the form "ds-" plus the first
// eight hex characters of a random UUID, the format the backend uses.
func GenerateDataSourceID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return dataSourceIDPrefix + raw[:8]
}

package shuttle

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultPort is used when a profile does not set one.
const DefaultPort = 22

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,30}[a-z0-9]$`)

// ValidateID checks the server id format: 3-32 chars, lowercase alphanumeric
// and dashes, not starting or ending with a dash.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q (must be 3-32 chars, lowercase alphanumeric with dashes)", ErrInvalidID, id)
	}
	return nil
}

// ServerProfile is a resolved, read-only snapshot of one registry entry.
// Holders never mutate it; writes go through the registry.
type ServerProfile struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Host         string `json:"host" yaml:"host"`
	Port         int    `json:"port" yaml:"port"`
	User         string `json:"user" yaml:"user"`
	IdentityFile string `json:"identity_file" yaml:"identity_file"`
	RemoteBase   string `json:"remote_base" yaml:"remote_base"`
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	S3Backup     bool   `json:"s3_backup" yaml:"s3_backup"`
}

// ResolvedRemoteBase returns RemoteBase, or /home/{user}/.sync-shuttle when it
// is empty and a user is set.
func (p ServerProfile) ResolvedRemoteBase() string {
	if p.RemoteBase != "" {
		return p.RemoteBase
	}
	if p.User != "" {
		return fmt.Sprintf("/home/%s/.sync-shuttle", p.User)
	}
	return ""
}

// Status renders the enabled flag as "enabled" or "disabled".
func (p ServerProfile) Status() string {
	if p.Enabled {
		return "enabled"
	}
	return "disabled"
}

// EnvVar is one shell assignment in a profile export.
type EnvVar struct {
	Key   string
	Value string
}

// String renders the assignment with the value single-quoted for a POSIX shell.
func (v EnvVar) String() string {
	return v.Key + "='" + ShellEscape(v.Value) + "'"
}

// ShellEscape makes s safe inside single quotes: each ' becomes '\''.
func ShellEscape(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}

// ShellEnv returns the executor-facing assignments in their fixed order.
func (p ServerProfile) ShellEnv() []EnvVar {
	return []EnvVar{
		{Key: "server_name", Value: p.Name},
		{Key: "server_host", Value: p.Host},
		{Key: "server_port", Value: fmt.Sprintf("%d", p.Port)},
		{Key: "server_user", Value: p.User},
		{Key: "server_identity_file", Value: p.IdentityFile},
		{Key: "server_remote_base", Value: p.ResolvedRemoteBase()},
		{Key: "server_s3_backup", Value: fmt.Sprintf("%t", p.S3Backup)},
	}
}

// ServerSummary is one row of the detailed registry listing.
type ServerSummary struct {
	Status string `json:"status" yaml:"status"`
	ID     string `json:"id" yaml:"id"`
	User   string `json:"user" yaml:"user"`
	Host   string `json:"host" yaml:"host"`
	Port   int    `json:"port" yaml:"port"`
	Name   string `json:"name" yaml:"name"`
}

// String renders the pipe-delimited form status|id|user|host|port|name.
func (s ServerSummary) String() string {
	return fmt.Sprintf("%s|%s|%s|%s|%d|%s", s.Status, s.ID, s.User, s.Host, s.Port, s.Name)
}

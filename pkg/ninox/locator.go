package ninox

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	teamURL     = regexp.MustCompile(`^https://app\.ninox\.com/#/teams/([a-zA-Z0-9]{2,})`)
	databaseURL = regexp.MustCompile(`^https://app\.ninox\.com/#/teams/[a-zA-Z0-9]{2,}/database/([a-zA-Z0-9]{2,})`)
	tableURL    = regexp.MustCompile(`^https://app\.ninox\.com/#/teams/[a-zA-Z0-9]{2,}/database/[a-zA-Z0-9]{2,}/module/([a-zA-Z0-9]{1,})`)

	plainID      = regexp.MustCompile(`^[a-zA-Z0-9_]{2,}$`)
	plainTableID = regexp.MustCompile(`^[a-zA-Z0-9]{1,}$`)

	recordIDChars = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	qualifiedID   = regexp.MustCompile(`^([A-Za-z]+)(\d+)$`)
)

// LocatorError reports a team, database or table reference that is neither
// a valid id nor a recognized app URL.
type LocatorError struct {
	Kind  string
	Value string
}

func (e *LocatorError) Error() string {
	return fmt.Sprintf("not a valid Ninox %s id or URL: %q", e.Kind, e.Value)
}

func parseLocator(kind, value string, fromURL, id *regexp.Regexp) (string, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		m := fromURL.FindStringSubmatch(value)
		if m == nil {
			return "", &LocatorError{Kind: kind, Value: value}
		}
		return m[1], nil
	}
	if !id.MatchString(value) {
		return "", &LocatorError{Kind: kind, Value: value}
	}
	return value, nil
}

// ParseTeamLocator accepts a team id or an app URL pointing into the team.
func ParseTeamLocator(value string) (string, error) {
	return parseLocator("team", value, teamURL, plainID)
}

// ParseDatabaseLocator accepts a database id or an app URL pointing into it.
func ParseDatabaseLocator(value string) (string, error) {
	return parseLocator("database", value, databaseURL, plainID)
}

// ParseTableLocator accepts a table id or an app URL pointing at the table.
func ParseTableLocator(value string) (string, error) {
	return parseLocator("table", value, tableURL, plainTableID)
}

// InvalidIDsError names every record id that failed validation.
type InvalidIDsError struct {
	IDs []string
}

func (e *InvalidIDsError) Error() string {
	return fmt.Sprintf("invalid record ids: %s", strings.Join(e.IDs, ", "))
}

// ValidateRecordIDs returns an *InvalidIDsError if any id is not alphanumeric.
func ValidateRecordIDs(ids []string) error {
	var bad []string
	for _, id := range ids {
		if !recordIDChars.MatchString(id) {
			bad = append(bad, id)
		}
	}
	if len(bad) > 0 {
		return &InvalidIDsError{IDs: bad}
	}
	return nil
}

// ParseQualifiedID splits a script-style record id such as "B78670" into the
// table id ("B") and the record id ("78670").
func ParseQualifiedID(id string) (table string, record RecordID, err error) {
	m := qualifiedID.FindStringSubmatch(id)
	if m == nil {
		return "", "", fmt.Errorf("invalid record id format %q: expected table letters followed by digits, e.g. \"B78670\"", id)
	}
	return m[1], RecordID(m[2]), nil
}

package sqlite

import "strings"

// modernc.org/sqlite surfaces constraint failures as plain error strings;
// there is no typed error to unwrap, so we match the stable message text.

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

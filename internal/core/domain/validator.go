package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	ErrNotSelect        = errors.New("only SELECT queries are allowed")
	ErrForbiddenKeyword = errors.New("detected forbidden SQL keyword")
	ErrMultiStatement   = errors.New("multiple statements are not allowed")
	ErrParseFailed      = errors.New("failed to parse SQL")
	ErrSelectInto       = errors.New("SELECT INTO is not allowed")
)

// ForbiddenKeywords are the data- and schema-modifying keywords rejected
// anywhere in a statement.
var ForbiddenKeywords = []string{"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "TRUNCATE", "CREATE"}

var forbiddenPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(ForbiddenKeywords, "|") + `)\b`)

const previewLen = 40

// NotSelectError is returned when a statement does not begin with SELECT.
type NotSelectError struct {
	Preview string
}

func (e *NotSelectError) Error() string {
	return fmt.Sprintf("%s, got: %s...", ErrNotSelect, e.Preview)
}

func (e *NotSelectError) Unwrap() error { return ErrNotSelect }

// ForbiddenKeywordError is returned when a blocked keyword appears as a whole word.
type ForbiddenKeywordError struct {
	Keyword string
}

func (e *ForbiddenKeywordError) Error() string {
	return fmt.Sprintf("%s %s (%s)", ErrForbiddenKeyword, strings.ToUpper(e.Keyword), strings.Join(ForbiddenKeywords, "/"))
}

func (e *ForbiddenKeywordError) Unwrap() error { return ErrForbiddenKeyword }

// MultipleStatementsError is returned when a separator remains after the
// single trailing one has been stripped.
type MultipleStatementsError struct{}

func (e *MultipleStatementsError) Error() string { return ErrMultiStatement.Error() }

func (e *MultipleStatementsError) Unwrap() error { return ErrMultiStatement }

// IsValidationError reports whether err was produced by the statement gate.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNotSelect) ||
		errors.Is(err, ErrForbiddenKeyword) ||
		errors.Is(err, ErrMultiStatement) ||
		errors.Is(err, ErrParseFailed) ||
		errors.Is(err, ErrSelectInto)
}

// ValidatedStatement is SQL text that passed StatementValidator. It can only
// be constructed by Validate.
type ValidatedStatement struct {
	sql string
}

// SQL returns the cleaned statement text.
func (s ValidatedStatement) SQL() string { return s.sql }

func (s ValidatedStatement) String() string { return s.sql }

// StatementValidator enforces the SELECT-only, single-statement, no-forbidden-keyword
// policy. It is a keyword blocklist, not a parser.
type StatementValidator struct{}

func NewStatementValidator() *StatementValidator {
	return &StatementValidator{}
}

// Validate cleans the statement and checks it in order: SELECT prefix,
// forbidden keywords, stray separators. The first violation wins.
func (v *StatementValidator) Validate(sql string) (ValidatedStatement, error) {
	cleaned := strings.TrimSpace(sql)
	cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, ";"))

	if !strings.EqualFold(firstWord(cleaned), "select") {
		return ValidatedStatement{}, &NotSelectError{Preview: preview(cleaned)}
	}

	if kw := forbiddenPattern.FindString(cleaned); kw != "" {
		return ValidatedStatement{}, &ForbiddenKeywordError{Keyword: kw}
	}

	if strings.Contains(cleaned, ";") {
		return ValidatedStatement{}, &MultipleStatementsError{}
	}

	return ValidatedStatement{sql: cleaned}, nil
}

// firstWord returns the leading run of identifier characters.
func firstWord(s string) string {
	end := strings.IndexFunc(s, func(r rune) bool {
		return !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	if end < 0 {
		return s
	}
	return s[:end]
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewLen {
		return s
	}
	return string([]rune(s)[:previewLen])
}

// Explain wraps a validated statement in EXPLAIN. Without ANALYZE the
// statement is planned but never executed.
func Explain(stmt ValidatedStatement) ValidatedStatement {
	return ValidatedStatement{sql: "EXPLAIN " + stmt.sql}
}

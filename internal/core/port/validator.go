package port

import "github.com/guillermoBallester/askdb/internal/core/domain"

// StatementValidator gates model output before it reaches the database.
type StatementValidator interface {
	Validate(sql string) (domain.ValidatedStatement, error)
}

// StatementCheck is an extra rejection pass over an already validated statement.
type StatementCheck interface {
	Check(stmt domain.ValidatedStatement) error
}

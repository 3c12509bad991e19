package domain

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ParserCheck re-checks a validated statement with PostgreSQL's actual
// parser. It only adds rejections on top of StatementValidator: the statement
// must parse to exactly one SELECT with no INTO target and no row locking.
type ParserCheck struct{}

func NewParserCheck() *ParserCheck {
	return &ParserCheck{}
}

func (c *ParserCheck) Check(stmt ValidatedStatement) error {
	tree, err := pg_query.Parse(stmt.SQL())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	if len(tree.Stmts) == 0 || tree.Stmts[0].Stmt == nil {
		return fmt.Errorf("%w: empty statement", ErrParseFailed)
	}

	if len(tree.Stmts) > 1 {
		return &MultipleStatementsError{}
	}

	sel, ok := tree.Stmts[0].Stmt.Node.(*pg_query.Node_SelectStmt)
	if !ok {
		return &NotSelectError{Preview: preview(stmt.SQL())}
	}

	if sel.SelectStmt.IntoClause != nil {
		return ErrSelectInto
	}
	if len(sel.SelectStmt.LockingClause) > 0 {
		return fmt.Errorf("%w: row locking clause", ErrNotSelect)
	}

	return nil
}

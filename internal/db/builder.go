package db

import "github.com/Masterminds/squirrel"

// Builder returns a squirrel statement builder using Postgres placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

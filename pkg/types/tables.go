package types

// Standard table names for Library.GetTable.
const (
	TableCategories = "categories"
	TableTerms      = "terms"
	TableIndexes    = "indexes"
	TableJournal    = "journal"
)

// StandardTableNames lists all standard table names for enumeration.
var StandardTableNames = []string{
	TableCategories,
	TableTerms,
	TableIndexes,
	TableJournal,
}

// Package spellbook compiles spells into SQL for a dialect.
//
// A Spellbook pairs the command compilers with a Dialect:
//
//	book := spellbook.New(spellbook.MySQL{}, spellbook.WithLogger(logger))
//	res, err := book.Format(s)
//	// res.SQL:    SELECT * FROM `articles` WHERE `author_id` = ?
//	// res.Values: [42]
//
// Values[i] always binds the i-th ? of SQL. Formatting never modifies the
// spell: it works on a clone, rewrites that clone (qualifying columns of
// joined queries, promoting the base table into a derived table when a
// joined query is limited) and renders it.
//
// Compilation fails with an *Error for spells that would produce wrong or
// unsafe SQL: a missing sharding key, OFFSET without LIMIT, an empty SET or
// an unknown command.
package spellbook

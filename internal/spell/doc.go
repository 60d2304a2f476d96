// Package spell defines the query descriptor compiled by the spellbook.
//
// A Spell is plain data: the command, the model it targets, and the clauses
// of the statement as expression trees. Nothing here renders SQL. Spells are
// usually built from YAML definitions:
//
//	command: select
//	model: Post
//	where:
//	  - expr: "isPrivate = ? AND authorId IN ?"
//	    values:
//	      - true
//	      - spell: {model: User, where: ["status = 1"]}
//	joins:
//	  author: {model: User, on: "posts.authorId = author.id"}
//	limit: 10
//
// Clone returns a structural copy. The spellbook compiles a clone, so a spell
// can be compiled any number of times, from any number of goroutines, as long
// as nobody mutates it meanwhile.
package spell

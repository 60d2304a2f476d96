// Package harness provides conformance testing for compiled spells.
//
// The harness loads CUE models, builds a spell from a YAML case, compiles it
// for several dialects and checks the SQL, bound values or error of each.
//
// # Case Format
//
// Cases are defined in YAML files with the following structure:
//
//	name: posts_with_author
//	description: "LIMIT on a join applies to base rows"
//	models: ../models
//	dialects: [mysql, postgres, sqlite]
//	spell:
//	  command: select
//	  model: Post
//	  joins:
//	    author: { model: User, on: "posts.authorId = author.id" }
//	  where:
//	    - expr: "wordCount > ?"
//	      values: [100]
//	  limit: 2
//	expect:
//	  postgres:
//	    sql: 'SELECT "posts".*, ...'
//	    values: [100]
//	  mysql:
//	    error: "sharding key"
//	    code: SHARDING_KEY
//	sandbox:
//	  seed:
//	    - model: User
//	      rows: [{ id: 1, nickname: leah, email: leah@example.com }]
//	  rows:
//	    - { "author:nickname": leah }
//
// # Sandbox
//
// A case with a sandbox section also runs its SQLite output. Each case gets
// a fresh in-memory store with one table per model; seed rows are written
// with compiled bulk inserts, then the statement is prepared and executed
// and its rows (or affected count) compared.
//
// # Golden Files
//
// RunWithGolden snapshots every dialect's output under testdata/golden so
// that a change in generated SQL shows up as a reviewable diff.
//
// # Usage
//
//	c, err := harness.LoadCase("testdata/cases/posts_with_author.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(c)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness

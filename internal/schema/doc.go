// Package schema describes the models a spell is compiled against.
//
// A Model maps attribute names (what callers write in expressions, e.g.
// authorId) to column names (what the database has, e.g. author_id), and
// carries the keys the spellbook enforces or targets: the primary key, unique
// attributes, the sharding key and the created-at attribute.
//
// Models are usually loaded from CUE:
//
//	model: Post: {
//		table: "articles"
//		attributes: {
//			id:        {type: "BIGINT", primaryKey: true}
//			title:     {type: "VARCHAR(255)", allowNull: false}
//			authorId:  {type: "BIGINT"}
//			createdAt: {type: "DATETIME", column: "gmt_create"}
//		}
//	}
//
// Attribute order follows declaration order in the CUE source, and is the
// order in which INSERT columns are emitted.
package schema

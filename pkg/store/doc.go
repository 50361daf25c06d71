/*
Package store is the SQLite-backed content store for FreedomCMS. It owns
the relational schema (templates, pages, page blocks, per-block parameter
values and settings) and exposes the operations the admin API is built on:
CRUD, block editing and reordering, and JSON page export/import.

The store works with any database/sql SQLite driver; the cmd package picks
between modernc.org/sqlite and mattn/go-sqlite3 with a build tag. Slug
uniqueness and the template-in-use delete policy are enforced here, in
code, so behavior does not depend on driver-specific foreign key support.
*/
package store

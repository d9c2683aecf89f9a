// Package database provides the PostgreSQL connection pool and the
// Postgres-backed implementations of the store collaborator contracts.
//
// Schema:
//
//	CREATE TABLE markers (
//	    partition_key  text PRIMARY KEY,
//	    last_processed bigint NOT NULL,
//	    etag           uuid NOT NULL
//	);
//
//	CREATE TABLE index_records (
//	    table_key text NOT NULL,
//	    partition text NOT NULL,
//	    row_key   text NOT NULL,
//	    data      bytea NOT NULL,
//	    PRIMARY KEY (table_key, partition, row_key)
//	);
//
//	CREATE TABLE changes (
//	    partition_key text NOT NULL,
//	    row_key       text NOT NULL,
//	    data          bytea NOT NULL,
//	    PRIMARY KEY (partition_key, row_key)
//	);
//
//	CREATE TABLE blobs (
//	    path text PRIMARY KEY,
//	    data bytea NOT NULL
//	);
package database

// Package storage - visit record document stores
package storage

import (
	"context"
	"errors"
)

// Driver identifies a document store backend
type Driver string

const (
	// DriverFilesystem documents are files under a local directory
	DriverFilesystem Driver = "fs"
	// DriverS3 documents are objects in an S3 compatible bucket
	DriverS3 Driver = "s3"
	// DriverMemory documents are held in process memory
	DriverMemory Driver = "memory"
)

// ErrDocumentExists a document already exists under the name
var ErrDocumentExists = errors.New("document already exists")

// ErrDocumentNotFound no document exists at the location
var ErrDocumentNotFound = errors.New("document not found")

// documentContentType content type of stored documents
const documentContentType = "text/markdown; charset=utf-8"

/*
DocumentStore holds visit record documents.

A document is created under a name and thereafter addressed by the location the store
returned for it. Documents are never listed; they are reached only through the record
that points at them.
*/
type DocumentStore interface {
	/*
		Create store a new document, failing if the name is already taken

			@param ctx context.Context - execution context
			@param name string - document name
			@param content []byte - document content
			@returns the location of the new document
	*/
	Create(ctx context.Context, name string, content []byte) (string, error)

	/*
		Write replace the content of the document at a location

		Writing the same content again is harmless, so a failed write can be retried.

			@param ctx context.Context - execution context
			@param location string - document location
			@param content []byte - document content
	*/
	Write(ctx context.Context, location string, content []byte) error

	/*
		Read fetch the content of the document at a location

			@param ctx context.Context - execution context
			@param location string - document location
			@returns the document content
	*/
	Read(ctx context.Context, location string) ([]byte, error)

	// Driver the store backend type
	Driver() Driver

	// Locator identifies the store instance, e.g. the root directory or the bucket
	Locator() string
}

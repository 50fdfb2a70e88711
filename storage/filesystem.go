package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
)

// filesystemStore implements DocumentStore on a local directory
type filesystemStore struct {
	goutils.Component
	root string
}

/*
NewFilesystemStore define a document store rooted at a local directory

The directory is created if it does not exist. Document locations are the file paths
of the documents.

	@param root string - the records root directory
	@returns the store
*/
func NewFilesystemStore(root string) (DocumentStore, error) {
	if root == "" {
		return nil, fmt.Errorf("document root directory not specified")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to prepare document root %s [%w]", root, err)
	}
	logTags := log.Fields{"module": "storage", "component": "fs-document-store", "root": root}
	return &filesystemStore{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		root: root,
	}, nil
}

func (s *filesystemStore) Driver() Driver {
	return DriverFilesystem
}

func (s *filesystemStore) Locator() string {
	abs, err := filepath.Abs(s.root)
	if err != nil {
		abs = s.root
	}
	return "file://" + filepath.ToSlash(abs)
}

// checkName verify a document name can not escape the root directory
func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("empty document name")
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid document name '%s'", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("document name '%s' contains a path separator", name)
	}
	return nil
}

// writeTemp write content into a new temporary file in a directory
func writeTemp(dir string, content []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

/*
Create store a new document, failing if the name is already taken

The content is fully written to a temporary file first, then hard linked into place,
so a document is never visible half written and two creators can not both win.

	@param ctx context.Context - execution context
	@param name string - document name
	@param content []byte - document content
	@returns the location of the new document
*/
func (s *filesystemStore) Create(ctx context.Context, name string, content []byte) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	location := filepath.Join(s.root, name)

	tmpName, err := writeTemp(s.root, content)
	if err != nil {
		return "", fmt.Errorf("failed to stage document %s [%w]", location, err)
	}
	defer func() { _ = os.Remove(tmpName) }()

	if err := os.Link(tmpName, location); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("document %s [%w]", location, ErrDocumentExists)
		}
		return "", fmt.Errorf("failed to place document %s [%w]", location, err)
	}

	log.WithFields(s.GetLogTagsForContext(ctx)).WithField("location", location).Debug("Created document")
	return location, nil
}

/*
Write replace the content of the document at a location

	@param ctx context.Context - execution context
	@param location string - document location
	@param content []byte - document content
*/
func (s *filesystemStore) Write(ctx context.Context, location string, content []byte) error {
	if location == "" {
		return fmt.Errorf("empty document location")
	}
	dir := filepath.Dir(location)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to prepare document directory %s [%w]", dir, err)
	}

	tmpName, err := writeTemp(dir, content)
	if err != nil {
		return fmt.Errorf("failed to stage document %s [%w]", location, err)
	}
	if err := os.Rename(tmpName, location); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace document %s [%w]", location, err)
	}

	log.WithFields(s.GetLogTagsForContext(ctx)).WithField("location", location).Debug("Wrote document")
	return nil
}

/*
Read fetch the content of the document at a location

	@param ctx context.Context - execution context
	@param location string - document location
	@returns the document content
*/
func (s *filesystemStore) Read(_ context.Context, location string) ([]byte, error) {
	content, err := os.ReadFile(location)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("document %s [%w]", location, ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("failed to read document %s [%w]", location, err)
	}
	return content, nil
}

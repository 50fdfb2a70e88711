package storage_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alwitt/karte/storage"
	"github.com/stretchr/testify/assert"
)

// verifyDocumentStoreContract exercise the behavior every DocumentStore must share
//
// missingLocation must be a well-formed location of the store holding no document.
func verifyDocumentStoreContract(
	t *testing.T, uut storage.DocumentStore, missingLocation string,
) {
	assert := assert.New(t)
	utCtx := context.Background()

	content1 := []byte("---\npatient_id: p-1\n---\n\n# 記録本文\n")
	content2 := []byte("---\npatient_id: p-1\n---\n\n# 記録本文\n\n- S: 更新\n")

	// Case 0: create and read back
	loc, err := uut.Create(utCtx, "2024-05-01_山田太郎.md", content1)
	assert.Nil(err)
	assert.NotEmpty(loc)
	{
		read, err := uut.Read(utCtx, loc)
		assert.Nil(err)
		assert.Equal(content1, read)
	}

	// Case 1: the name is now taken
	{
		_, err := uut.Create(utCtx, "2024-05-01_山田太郎.md", content2)
		assert.Error(err)
		assert.True(errors.Is(err, storage.ErrDocumentExists))
		read, err := uut.Read(utCtx, loc)
		assert.Nil(err)
		assert.Equal(content1, read)
	}

	// Case 2: overwrite, twice
	assert.Nil(uut.Write(utCtx, loc, content2))
	assert.Nil(uut.Write(utCtx, loc, content2))
	{
		read, err := uut.Read(utCtx, loc)
		assert.Nil(err)
		assert.Equal(content2, read)
	}

	// Case 3: missing document
	{
		_, err := uut.Read(utCtx, missingLocation)
		assert.Error(err)
		assert.True(errors.Is(err, storage.ErrDocumentNotFound))
	}

	// Case 4: names that would escape the store
	for _, badName := range []string{"", "..", "nested/name.md", `nested\name.md`} {
		_, err := uut.Create(utCtx, badName, content1)
		assert.Error(err, badName)
	}

	// Case 5: concurrent creators of one name, only one wins
	{
		creators := 8
		wg := sync.WaitGroup{}
		results := make(chan error, creators)
		for itr := 0; itr < creators; itr++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := uut.Create(utCtx, "2024-05-02_race.md", content1)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		won := 0
		for err := range results {
			if err == nil {
				won++
			} else {
				assert.True(errors.Is(err, storage.ErrDocumentExists), err.Error())
			}
		}
		assert.Equal(1, won)
	}
}

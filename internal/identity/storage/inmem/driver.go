package inmem

import (
	"context"

	"github.com/hashicorp/go-memdb"
	"github.com/skybi/cost-estimator/internal/identity"
)

const (
	tableProviders = "providers"
	tableTokens    = "tokens"
)

var dbSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tableProviders: {
			Name: tableProviders,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:         "id",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "Name"},
				},
			},
		},
		tableTokens: {
			Name: tableTokens,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:         "id",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "Key"},
				},
				"expires": {
					Name:         "expires",
					Unique:       false,
					AllowMissing: false,
					Indexer:      &memdb.IntFieldIndex{Field: "Expires"},
				},
			},
		},
	},
}

// Driver represents the in-memory broker storage driver built using hashicorp/go-memdb
type Driver struct {
	db *memdb.MemDB
}

var _ identity.Storage = (*Driver)(nil)

// New creates a new empty in-memory broker storage driver
func New() (*Driver, error) {
	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return nil, err
	}
	return &Driver{db}, nil
}

// GetProvider retrieves a credential provider by its name
func (driver *Driver) GetProvider(_ context.Context, name string) (*identity.CredentialProvider, error) {
	txn := driver.db.Txn(false)
	obj, err := txn.First(tableProviders, "id", name)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}

	provider := *obj.(*identity.CredentialProvider)
	return &provider, nil
}

// PutProvider creates or replaces a credential provider
func (driver *Driver) PutProvider(_ context.Context, provider *identity.CredentialProvider) error {
	stored := *provider

	txn := driver.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tableProviders, &stored); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// GetToken retrieves a cached token by its key
func (driver *Driver) GetToken(_ context.Context, key string) (*identity.CachedToken, error) {
	txn := driver.db.Txn(false)
	obj, err := txn.First(tableTokens, "id", key)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}

	token := *obj.(*identity.CachedToken)
	return &token, nil
}

// PutToken creates or replaces a cached token
func (driver *Driver) PutToken(_ context.Context, token *identity.CachedToken) error {
	stored := *token

	txn := driver.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tableTokens, &stored); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// DeleteExpired deletes all cached tokens expiring at or before now
func (driver *Driver) DeleteExpired(_ context.Context, now int64) (int, error) {
	txn := driver.db.Txn(true)
	defer txn.Abort()

	it, err := txn.LowerBound(tableTokens, "expires", int64(0))
	if err != nil {
		return 0, err
	}

	var expired []*identity.CachedToken
	for obj := it.Next(); obj != nil; obj = it.Next() {
		token := obj.(*identity.CachedToken)
		if token.Expires > now {
			break
		}
		expired = append(expired, token)
	}

	for _, token := range expired {
		if err := txn.Delete(tableTokens, token); err != nil {
			return 0, err
		}
	}

	txn.Commit()
	return len(expired), nil
}

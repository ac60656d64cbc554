package blogs

import (
	"context"

	"github.com/romiojoseph/at-protocol/internal/atproto/pds"
)

// RecordStore is the subset of the PDS client the blog domain needs.
// pds.Client satisfies it; tests substitute fakes.
type RecordStore interface {
	ListRecords(ctx context.Context, repo, collection string, limit int, cursor string) (*pds.ListRecordsResponse, error)
	GetRecord(ctx context.Context, repo, collection, rkey string) (*pds.RecordResponse, error)
	CreateRecord(ctx context.Context, collection, rkey string, record any) (uri string, cid string, err error)
	PutRecord(ctx context.Context, collection, rkey string, record any, swapCID string) (uri string, cid string, err error)
	DeleteRecord(ctx context.Context, collection, rkey string) error
	DID() string
}

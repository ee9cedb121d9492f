package elastic

import (
	"bytes"
	"context"
	"runtime"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Client struct {
	esClient  *elasticsearch.Client
	indexName string
	logger    *zap.SugaredLogger
}

func NewClient(esClient *elasticsearch.Client, indexName string, logger *zap.SugaredLogger) *Client {
	return &Client{
		esClient:  esClient,
		indexName: indexName,
		logger:    logger,
	}
}

type EsDocument struct {
	Id      string
	Payload []byte
}

func (c *Client) BulkIndex(ctx context.Context, data []*EsDocument) error {
	start := time.Now()
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:      c.indexName,
		Client:     c.esClient,
		NumWorkers: min(runtime.NumCPU(), 8), // 8 parallel connections are enough
	})
	if err != nil {
		return errors.Wrap(err, "creating bulk indexer")
	}

	for _, d := range data {
		item := esutil.BulkIndexerItem{
			Action:     "index", // creates or replaces
			DocumentID: d.Id,
			Body:       bytes.NewReader(d.Payload),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					c.logger.Errorw("Error indexing document.", "id", d.Id, "error", err)
				} else {
					c.logger.Errorw("Error indexing document.", "id", d.Id, "type", res.Error.Type, "reason", res.Error.Reason)
				}
			},
		}
		if err = bi.Add(ctx, item); err != nil {
			return errors.Wrapf(err, "adding document [%s]", d.Id)
		}
	}

	err = bi.Close(ctx)
	if err != nil {
		return errors.Wrap(err, "closing bulk indexer")
	}

	biStats := bi.Stats()
	if biStats.NumFailed > 0 {
		return errors.Errorf("%d errors indexing [%d] documents", biStats.NumFailed, biStats.NumFlushed)
	}
	c.logger.Infow("Indexed documents.", "documents", biStats.NumFlushed, "bytes", biStats.FlushedBytes,
		"requests", biStats.NumRequests, "duration", time.Since(start))
	return nil
}

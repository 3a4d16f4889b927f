// Batched persistence of decoded sensor readings.
package hbase

import (
	"fmt"
	"time"

	"github.com/matryer/try"
	"github.com/rederry/goh"
	"github.com/rederry/goh/Hbase"
	"github.com/rs/zerolog/log"
)

const saveAttempts = 5

type HConfig struct {
	TableName string
	Addr      string // thrift addr
	BatchSize int    // row batch size
}

// BatchClient accumulates row mutations and flushes them in batches,
// reconnecting and retrying on thrift failures.
type BatchClient struct {
	*goh.HClient
	*HConfig
	rowBatches []*Hbase.BatchMutation
}

func NewBatchClient(hc *HConfig) (*BatchClient, error) {
	client, err := NewClient(hc.Addr)
	if err != nil {
		return nil, err
	}
	bc := &BatchClient{
		HClient:    client,
		HConfig:    hc,
		rowBatches: make([]*Hbase.BatchMutation, 0, hc.BatchSize),
	}
	return bc, nil
}

func NewClient(addr string) (*goh.HClient, error) {
	client, err := goh.NewTcpClient(addr, goh.TBinaryProtocol, false)
	if err != nil {
		return client, err
	}

	if err = client.Open(); err != nil {
		return client, err
	}
	log.Info().Msgf("Connect to thrift:%s", addr)
	return client, err
}

// GenBatchMutation render a record as one row batch
func GenBatchMutation(record HRecord) *Hbase.BatchMutation {
	data := record.GetQualifiersMap()
	ms := make([]*Hbase.Mutation, 0, len(data))
	for k, v := range data {
		ms = append(ms, goh.NewMutation(k, v))
	}
	return goh.NewBatchMutation(record.GetRowKey(), ms)
}

// Save queue one record, flushing when the batch is full
func (bc *BatchClient) Save(record HRecord) {
	bc.rowBatches = append(bc.rowBatches, GenBatchMutation(record))
	if len(bc.rowBatches) >= bc.BatchSize {
		bc.flush()
	}
}

func (bc *BatchClient) flush() {
	if len(bc.rowBatches) == 0 {
		return
	}
	save := func(attempt int) (bool, error) {
		err := bc.MutateRows(bc.TableName, bc.rowBatches, nil)
		if err != nil {
			log.Error().Msgf("failed to save batch, err: %v, table: %s, retry...%d", err, bc.TableName, attempt)
			var content string
			for _, row := range bc.rowBatches {
				content = content + fmt.Sprintf("     %s    ", string(row.Row))
			}
			log.Info().Msgf("unsaved rows: %s", content)
			bc.HClient, _ = NewClient(bc.Addr)
			time.Sleep(time.Second)
		}
		return attempt < saveAttempts, err
	}
	if err := try.Do(save); err != nil {
		log.Error().Msgf("save error: %v", err)
	}
	bc.rowBatches = bc.rowBatches[:0]
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/domain/allocation"
)

// CompressionAlgo specifies the compression algorithm used for a stored
// plan snapshot.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// PlanArchive persists the allocation plan snapshot of every committed
// shipment, so an auditor can see exactly what the planner decided at
// commit time. Large plans are zstd-compressed.
type PlanArchive struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes
}

// NewPlanArchive creates a plan archive.
func NewPlanArchive(txManager *TxManager) (*PlanArchive, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &PlanArchive{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024, // 10KB
	}, nil
}

type planRow struct {
	ShipmentID      id.ID           `db:"shipment_id"`
	Payload         []byte          `db:"payload"`
	CompressionAlgo CompressionAlgo `db:"compression_algo"`
	CreatedAt       time.Time       `db:"created_at"`
}

// Archive stores the committed plan for a shipment. Called inside the
// commit transaction; the snapshot and the shipment land together.
func (a *PlanArchive) Archive(ctx context.Context, shipmentID id.ID, plan *allocation.Plan) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}

	algo := CompressionNone
	if len(payload) > a.compressThreshold {
		payload = a.encoder.EncodeAll(payload, nil)
		algo = CompressionZstd
	}

	sql := `
		INSERT INTO sys_plan_archive (shipment_id, payload, compression_algo, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (shipment_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			compression_algo = EXCLUDED.compression_algo,
			created_at = EXCLUDED.created_at
	`
	_, err = a.txManager.GetQuerier(ctx).Exec(ctx, sql,
		shipmentID, payload, algo, time.Now().UTC())
	if err != nil {
		return MapError(fmt.Errorf("archive plan: %w", err), "plan snapshot")
	}
	return nil
}

// GetPlan retrieves and decodes the archived plan of a shipment.
func (a *PlanArchive) GetPlan(ctx context.Context, shipmentID id.ID) (*allocation.Plan, error) {
	sql := `
		SELECT shipment_id, payload, compression_algo, created_at
		FROM sys_plan_archive
		WHERE shipment_id = $1
	`

	var row planRow
	if err := pgxscan.Get(ctx, a.txManager.GetQuerier(ctx), &row, sql, shipmentID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("plan snapshot", shipmentID.String())
		}
		return nil, MapError(fmt.Errorf("get plan: %w", err), "plan snapshot")
	}

	payload := row.Payload
	if row.CompressionAlgo == CompressionZstd {
		decoded, err := a.decoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress plan: %w", err)
		}
		payload = decoded
	}

	var plan allocation.Plan
	if err := json.Unmarshal(payload, &plan); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	return &plan, nil
}

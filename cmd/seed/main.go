// Package main provides a CLI tool for seeding the database with demo data.
package main

import (
	"context"
	"fmt"
	"os"

	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/auth"
	"almacen/internal/domain/catalogs/depot"
	"almacen/internal/domain/catalogs/item"
	"almacen/internal/domain/catalogs/partner"
	"almacen/internal/domain/inbound"
	"almacen/internal/domain/ledger"
	"almacen/internal/domain/lot"
	"almacen/internal/infrastructure/storage/postgres"
	"almacen/internal/infrastructure/storage/postgres/catalog_repo"
	"almacen/internal/infrastructure/storage/postgres/document_repo"
	"almacen/internal/infrastructure/storage/postgres/register_repo"
	"almacen/pkg/logger"
	"almacen/pkg/numerator"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txm := postgres.NewTxManager(pool)
	gen := numerator.New(pool)

	itemService := item.NewService(catalog_repo.NewItemRepo(txm), txm, gen)
	depotService := depot.NewService(catalog_repo.NewDepotRepo(txm), catalog_repo.NewPositionRepo(txm), txm)
	partnerService := partner.NewService(catalog_repo.NewPartnerRepo(txm), txm, gen)
	lotService := lot.NewService(catalog_repo.NewLotRepo(txm), txm)

	ledgerService := ledger.NewService(register_repo.NewLedgerRepo(txm))
	balanceRepo := register_repo.NewBalanceRepo(txm)
	inboundService := inbound.NewService(
		document_repo.NewReceiptRepo(txm), balanceRepo, ledgerService,
		itemService, partnerService, depotService, lotService, gen, txm,
	)

	d, err := seedDepot(ctx, depotService, log)
	if err != nil {
		log.Fatalw("failed to seed depot", "error", err)
	}

	items, err := seedItems(ctx, itemService, log)
	if err != nil {
		log.Fatalw("failed to seed items", "error", err)
	}

	supplier, err := seedSupplier(ctx, partnerService, log)
	if err != nil {
		log.Fatalw("failed to seed supplier", "error", err)
	}

	if os.Getenv("SEED_DEMO_STOCK") == "true" {
		if err := seedStock(ctx, inboundService, d, items, supplier, log); err != nil {
			log.Fatalw("failed to seed demo stock", "error", err)
		}
	}

	printDevToken(log)
	log.Info("seed complete")
}

func seedDepot(ctx context.Context, svc *depot.Service, log *logger.Logger) (*depot.Depot, error) {
	if existing, err := svc.GetByCode(ctx, "DEP-CENTRAL"); err == nil {
		log.Info("depot already seeded")
		return existing, nil
	}

	d := depot.NewDepot("DEP-CENTRAL", "Depósito Central", depot.TypeMixed)
	d.Plant = "Planta 1"
	if err := svc.Create(ctx, d); err != nil {
		return nil, err
	}

	recepcion := depot.NewPosition(d.ID, "REC", "Recepción", depot.PositionStorage)
	if err := svc.CreatePosition(ctx, recepcion); err != nil {
		return nil, err
	}
	for _, code := range []string{"A-01", "A-02", "B-01"} {
		p := depot.NewPosition(d.ID, code, "Estantería "+code, depot.PositionPicking)
		if err := svc.CreatePosition(ctx, p); err != nil {
			return nil, err
		}
	}

	d.DefaultInboundPositionID = &recepcion.ID
	if err := svc.Update(ctx, d); err != nil {
		return nil, err
	}

	log.Infow("depot seeded", "code", d.Code)
	return d, nil
}

func seedItems(ctx context.Context, svc *item.Service, log *logger.Logger) ([]*item.Item, error) {
	threshold := types.NewQuantityFromFloat64(100)

	yarn := item.NewItem("ART-000001", "Hilado de algodón 30/1", item.CategoryYarn)
	yarn.TrackLot = true
	yarn.AlertThresholdKilos = &threshold

	fabric := item.NewItem("ART-000002", "Tela jersey cruda", item.CategoryWipBag)
	fabric.TrackLot = true

	dye := item.NewItem("ART-000003", "Colorante reactivo azul", item.CategorySupply)
	dye.TrackUnidades = true

	specs := []*item.Item{yarn, fabric, dye}
	items := make([]*item.Item, 0, len(specs))
	for _, it := range specs {
		if existing, err := svc.GetByCode(ctx, it.Code); err == nil {
			items = append(items, existing)
			continue
		}
		if err := svc.Create(ctx, it); err != nil {
			return nil, err
		}
		items = append(items, it)
		log.Infow("item seeded", "code", it.Code)
	}
	return items, nil
}

func seedSupplier(ctx context.Context, svc *partner.Service, log *logger.Logger) (*partner.Partner, error) {
	if existing, err := svc.GetByName(ctx, "Hilandería del Norte SA"); err == nil {
		return existing, nil
	}

	p := partner.NewPartner("PRT-000001", "Hilandería del Norte SA")
	p.IsSupplier = true
	if err := svc.Create(ctx, p); err != nil {
		return nil, err
	}
	log.Infow("supplier seeded", "code", p.Code)
	return p, nil
}

func seedStock(
	ctx context.Context,
	svc *inbound.Service,
	d *depot.Depot,
	items []*item.Item,
	supplier *partner.Partner,
	log *logger.Logger,
) error {
	lines := make([]inbound.ReceiveLine, 0, len(items))
	for i, it := range items {
		itemID := it.ID
		lines = append(lines, inbound.ReceiveLine{
			ItemID:    &itemID,
			LotNumber: fmt.Sprintf("L-DEMO-%03d", i+1),
			Kilos:     types.NewQuantityFromFloat64(float64(50 * (i + 1))),
		})
	}

	receipt, err := svc.Receive(ctx, inbound.ReceiveRequest{
		SupplierID: &supplier.ID,
		DepotID:    d.ID,
		Note:       "carga inicial de demo",
		Lines:      lines,
	})
	if err != nil {
		return err
	}

	log.Infow("demo stock seeded", "receipt", receipt.Number, "lines", len(receipt.Lines))
	return nil
}

// printDevToken emits a JWT for local API exploration.
func printDevToken(log *logger.Logger) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return
	}

	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(secret))
	token, expires, err := jwtService.GenerateAccessToken(
		id.New().String(), "dev@almacen.local", []string{"admin"}, true,
	)
	if err != nil {
		log.Warnw("failed to generate dev token", "error", err)
		return
	}

	log.Infow("dev token generated", "expires_at", expires)
	fmt.Println(token)
}

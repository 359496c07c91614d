package main

import (
	"github.com/vulnwatchio/api/internal/infra/http/handler"
	"github.com/vulnwatchio/api/internal/infra/http/routes"
	"github.com/vulnwatchio/api/internal/infra/postgres"
	"github.com/vulnwatchio/api/internal/infra/redis"
	"github.com/vulnwatchio/api/pkg/validator"
)

func newHandlers(svc *services, db *postgres.DB, cache *redis.Client) routes.Handlers {
	v := validator.New()

	return routes.Handlers{
		Health:     handler.NewHealthHandler(version, db, cache),
		Asset:      handler.NewAssetHandler(svc.Assets, svc.Grading, svc.Categories, v),
		AssetGroup: handler.NewAssetGroupHandler(svc.Groups, svc.Grading, v),
		Finding:    handler.NewFindingHandler(svc.Findings, svc.Rules, v),
		Rule:       handler.NewRuleHandler(svc.Rules, v),
		Category:   handler.NewCategoryHandler(svc.Categories, v),
		Event:      handler.NewEventHandler(svc.Events),
		Scan:       handler.NewScanHandler(svc.Rules, v),
	}
}

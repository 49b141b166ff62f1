package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/servicemarket/internal/adapters/database"
	"github.com/zatekoja/servicemarket/internal/adapters/search"
	"github.com/zatekoja/servicemarket/internal/application/services"
	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	"github.com/zatekoja/servicemarket/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/servicemarket/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/servicemarket/internal/infrastructure/observability"
	"github.com/zatekoja/servicemarket/pkg/config"
)

type seedProvider struct {
	account  services.CreateAccountInput
	services []services.ServiceInput
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("servicemarket-seed", cfg.Env, cfg.LogLevel)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to DB")
	}
	defer pgClient.Close()

	ctx := context.Background()
	if err := database.Migrate(ctx, pgClient); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				side_effects,
				messages,
				transactions,
				reviews,
				booking_events,
				bookings,
				availability_windows,
				services,
				providers,
				users
			CASCADE
		`)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to reset tables")
		}
	}

	var searchRepo repositories.ProviderSearchRepository
	if tsClient, err := typesense.NewClient(ctx, &cfg.Typesense); err == nil {
		searchRepo = search.NewTypesenseAdapter(tsClient)
	} else {
		log.Warn().Err(err).Msg("Typesense unavailable; providers will not be indexed")
	}

	store := database.NewStore(pgClient, nil)
	searchService := services.NewSearchService(store, searchRepo)
	accounts := services.NewAccountService(store, nil, searchService)
	catalog := services.NewCatalogService(store)
	availability := services.NewAvailabilityService(store, cfg.Booking.DefaultDuration)

	for _, c := range seedCustomers() {
		id := entities.Identity{UserID: uuid.New().String(), Role: entities.RoleCustomer}
		if _, err := accounts.CreateAccount(ctx, id, c); err != nil {
			log.Error().Err(err).Str("email", c.Email).Msg("failed to create customer")
		}
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	for _, p := range seedProviders() {
		id := entities.Identity{UserID: uuid.New().String(), Role: entities.RoleProvider}
		if _, err := accounts.CreateAccount(ctx, id, p.account); err != nil {
			log.Error().Err(err).Str("email", p.account.Email).Msg("failed to create provider")
			continue
		}
		for _, in := range p.services {
			if _, err := catalog.CreateService(ctx, id, in); err != nil {
				log.Error().Err(err).Str("title", in.Title).Msg("failed to create service")
			}
		}

		// Working hours 08:00-18:00 UTC for the next two weeks
		for day := 1; day <= 14; day++ {
			start := today.AddDate(0, 0, day).Add(8 * time.Hour)
			span, err := entities.NewInterval(start, start.Add(10*time.Hour))
			if err != nil {
				log.Fatal().Err(err).Msg("bad seed interval")
			}
			if _, err := availability.AddWindow(ctx, id, id.UserID, span, entities.WindowOpen, "working hours"); err != nil {
				log.Error().Err(err).Str("provider_id", id.UserID).Msg("failed to add availability")
			}
		}
		log.Info().Str("provider", p.account.Provider.BusinessName).Msg("seeded provider")
	}

	if searchRepo != nil {
		n, err := searchService.ReindexAll(ctx)
		if err != nil {
			log.Error().Err(err).Msg("failed to index providers")
		} else {
			log.Info().Int("providers", n).Msg("indexed providers")
		}
	}

	log.Info().Msg("seeding complete")
}

func seedCustomers() []services.CreateAccountInput {
	return []services.CreateAccountInput{
		{Email: "ada@example.com", Name: "Ada Obi", Role: entities.RoleCustomer, Address: "12 Admiralty Way, Lekki, Lagos",
			Location: &entities.Location{Latitude: 6.4474, Longitude: 3.4723}},
		{Email: "tunde@example.com", Name: "Tunde Bello", Role: entities.RoleCustomer, Address: "5 Aminu Kano Crescent, Wuse 2, Abuja",
			Location: &entities.Location{Latitude: 9.0765, Longitude: 7.4683}},
	}
}

func seedProviders() []seedProvider {
	return []seedProvider{
		{
			account: services.CreateAccountInput{
				Email: "pat@plumbing.example.com", Name: "Pat Eze", Role: entities.RoleProvider,
				Location: &entities.Location{Latitude: 6.4531, Longitude: 3.3958},
				Provider: &services.ProviderProfileInput{
					BusinessName: "Pat's Plumbing", Bio: "Leaks, blocked drains and water heaters.",
					YearsExperience: 9, ServiceCategories: []string{"plumber"},
					HourlyRateMin: 500000, HourlyRateMax: 900000, BasePrice: 1000000, Insurance: true,
				},
			},
			services: []services.ServiceInput{
				{Title: "Leak repair", PriceType: entities.PriceTypeHourly, UnitPrice: 700000, MinHours: 1, Tags: []string{"leak", "pipes"}},
				{Title: "Water heater install", PriceType: entities.PriceTypeFixed, UnitPrice: 4500000, Tags: []string{"heater"}},
			},
		},
		{
			account: services.CreateAccountInput{
				Email: "kemi@sparks.example.com", Name: "Kemi Ade", Role: entities.RoleProvider,
				Location: &entities.Location{Latitude: 6.5967, Longitude: 3.3421},
				Provider: &services.ProviderProfileInput{
					BusinessName: "Sparks Electrical", Bio: "Wiring, inverters and fault finding.",
					YearsExperience: 6, ServiceCategories: []string{"electrician", "appliance_repair"},
					HourlyRateMin: 600000, HourlyRateMax: 1200000, BasePrice: 800000,
				},
			},
			services: []services.ServiceInput{
				{Title: "Fault finding", PriceType: entities.PriceTypeHourly, UnitPrice: 800000, MinHours: 2},
				{Title: "Inverter installation", PriceType: entities.PriceTypeFixed, UnitPrice: 6000000, Tags: []string{"inverter", "solar"}},
			},
		},
		{
			account: services.CreateAccountInput{
				Email: "hello@cleanhome.example.com", Name: "Grace Musa", Role: entities.RoleProvider,
				Location: &entities.Location{Latitude: 9.0433, Longitude: 7.4833},
				Provider: &services.ProviderProfileInput{
					BusinessName: "CleanHome Abuja", Bio: "Move-out and deep cleaning.",
					YearsExperience: 4, ServiceCategories: []string{"cleaner"},
					HourlyRateMin: 300000, HourlyRateMax: 500000, BasePrice: 1500000, Insurance: true,
				},
			},
			services: []services.ServiceInput{
				{Title: "Deep clean (3 bedroom)", PriceType: entities.PriceTypeFixed, UnitPrice: 2500000},
			},
		},
	}
}

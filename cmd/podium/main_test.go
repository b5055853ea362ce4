package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/podium/internal/adapters/http/api"
	"github.com/okian/podium/internal/adapters/llm"
	"github.com/okian/podium/internal/adapters/repository"
	app "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/config"
	"github.com/okian/podium/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestWiring(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		ctx := context.Background()
		cfg := config.New()
		log := logger.Get()

		convey.Convey("When the memory store is seeded from the sample fixture", func() {
			cfg.FixturePath = "../../fixtures/school.yaml"
			store, err := openStore(ctx, cfg, log)
			convey.So(err, convey.ShouldBeNil)
			defer store.Close()

			classes, err := store.Classes(ctx, "junior")
			convey.So(err, convey.ShouldBeNil)
			convey.So(classes, convey.ShouldHaveLength, 2)
		})

		convey.Convey("When the fixture is missing", func() {
			cfg.FixturePath = "does-not-exist.yaml"
			_, err := openStore(ctx, cfg, log)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the backend is unknown", func() {
			cfg.StoreBackend = "sqlite"
			_, err := openStore(ctx, cfg, log)
			convey.So(errors.Is(err, repository.ErrUnsupportedBackend), convey.ShouldBeTrue)
		})

		convey.Convey("When narration uses templates", func() {
			convey.So(newNarrator(cfg), convey.ShouldBeNil)
		})

		convey.Convey("When narration uses openai", func() {
			cfg.NarrationBackend = config.NarrationOpenAI
			cfg.OpenAIAPIKey = "sk-test"
			_, ok := newNarrator(cfg).(*llm.Narrator)
			convey.So(ok, convey.ShouldBeTrue)
		})
	})
}

func TestServerEndToEnd(t *testing.T) {
	convey.Convey("Given a service over the sample fixture behind the API", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.FixturePath = "../../fixtures/school.yaml"
		store, err := openStore(ctx, cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)

		svc := app.New(store, serviceOptions(cfg, logger.Get())...)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		post := func(path, body string) int {
			resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			return resp.StatusCode
		}

		convey.Convey("A class ceremony runs start to finish over HTTP", func() {
			start := `{"kind":"hero","league":"junior","month":"2026-09","scope":"c1"}`
			convey.So(post("/ceremony/start", start), convey.ShouldEqual, http.StatusCreated)
			convey.So(post("/ceremony/start", start), convey.ShouldEqual, http.StatusConflict)
			convey.So(post("/ceremony/skip", ""), convey.ShouldEqual, http.StatusOK)
			convey.So(post("/ceremony/advance", ""), convey.ShouldEqual, http.StatusOK)
			convey.So(post("/ceremony/end", ""), convey.ShouldEqual, http.StatusOK)
			convey.So(post("/ceremony/start", start), convey.ShouldEqual, http.StatusConflict)

			resp, err := http.Get(srv.URL + "/ceremony?since=0")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Standings are served", func() {
			resp, err := http.Get(srv.URL + "/standings?kind=team&league=junior&month=2026-09")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
		})
	})
}

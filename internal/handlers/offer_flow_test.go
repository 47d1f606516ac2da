package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	gateway "github.com/nimasrn/laser/internal/gateways"
	"github.com/nimasrn/laser/internal/model"
	"github.com/nimasrn/laser/internal/processor"
	"github.com/nimasrn/laser/internal/queue"
	"github.com/nimasrn/laser/internal/repository"
	"github.com/nimasrn/laser/internal/services"
	xhttp "github.com/nimasrn/laser/pkg/http"
	"github.com/nimasrn/laser/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type recordingPusher struct {
	mu   sync.Mutex
	sent []*gateway.PushRequest
}

func (p *recordingPusher) Send(ctx context.Context, req *gateway.PushRequest) (*gateway.PushResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, req)
	return &gateway.PushResponse{NotificationID: req.NotificationID, Status: gateway.StatusSent}, nil
}

func (p *recordingPusher) Sent() []*gateway.PushRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*gateway.PushRequest(nil), p.sent...)
}

type flowEnv struct {
	handler fasthttp.RequestHandler
	adapter redis.RedisAdapter
	queue   queue.QueueConfig
	users   *repository.UserRepository
}

func newFlowEnv(t *testing.T) *flowEnv {
	mr := miniredis.RunT(t)
	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "laser:", &goredis.UniversalOptions{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)

	qc := queue.QueueConfig{
		Name:              "offer-events",
		ConsumerGroup:     "notifier",
		ConsumerName:      "notifier",
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      20 * time.Millisecond,
		MaxLen:            1000,
		EnableDLQ:         true,
	}
	events, err := queue.NewQueue(adapter, qc)
	require.NoError(t, err)

	db := repository.NewTestDB(t)
	dealRepo := repository.NewDealRepository(db)
	offerRepo := repository.NewOfferRepository(db)
	shipmentRepo := repository.NewShipmentRepository(db)
	userRepo := repository.NewUserRepository(db)

	statuses := services.NewStatusService(repository.NewDealStatusRepository(db), adapter, time.Minute)
	deals := services.NewDealService(dealRepo, shipmentRepo, statuses, repository.NewTransactionRepository(db), repository.NewAccountProviderRepository(db), services.DealOptions{})
	offers := services.NewOfferService(dealRepo, offerRepo, shipmentRepo, statuses, events, 50)
	catalog := services.NewCatalogService(repository.NewLocationRepository(db), repository.NewTripRepository(db), shipmentRepo,
		repository.NewShipmentTypeRepository(db), dealRepo, offerRepo, statuses)

	r := xhttp.CreateDefaultRouter()
	g := r.Group("/api/v1")
	RegisterDealRoutes(g, NewDealHandler(deals, statuses))
	RegisterOfferRoutes(g, NewOfferHandler(offers))
	RegisterSearchRoutes(g, NewSearchHandler(services.NewSearchService(dealRepo)))
	RegisterCatalogRoutes(g, NewCatalogHandler(catalog))
	RegisterUserRoutes(g, NewUserHandler(services.NewUserService(userRepo)))
	RegisterHealthRoutes(g, NewHealthHandler(services.NewHealthService(db, adapter)))

	return &flowEnv{handler: r.Handler, adapter: adapter, queue: qc, users: userRepo}
}

// do runs one request through the router and decodes the JSON answer into out.
func (e *flowEnv) do(t *testing.T, method, path string, body any, wantStatus int, out any) {
	t.Helper()
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		ctx.Request.Header.SetContentType("application/json")
		ctx.Request.SetBody(raw)
	}

	e.handler(ctx)

	require.Equal(t, wantStatus, ctx.Response.StatusCode(), "%s %s: %s", method, path, ctx.Response.Body())
	if out != nil {
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), out))
	}
}

func TestOfferFlow_EndToEnd(t *testing.T) {
	e := newFlowEnv(t)

	var traveler, owner model.UserApplication
	e.do(t, "POST", "/api/v1/users", model.UserCreateRequest{Name: "Traveler", Phone: "+33612345678", PushToken: "tok-traveler"}, 201, &traveler)
	e.do(t, "POST", "/api/v1/users", model.UserCreateRequest{Name: "Owner", Phone: "+819012345678"}, 201, &owner)
	e.do(t, "PUT", fmt.Sprintf("/api/v1/users/%d/push-token", owner.ID), map[string]string{"token": "tok-owner"}, 204, nil)

	var paris, tokyo model.Location
	e.do(t, "POST", "/api/v1/locations", model.LocationCreateRequest{Country: "France", City: "Paris", Airport: "cdg"}, 201, &paris)
	e.do(t, "POST", "/api/v1/locations", model.LocationCreateRequest{Country: "Japan", City: "Tokyo", Airport: "NRT"}, 201, &tokyo)
	assert.Equal(t, "CDG", paris.Airport)

	arrive := time.Date(2026, 11, 1, 20, 0, 0, 0, time.UTC)
	var tripDeal model.Deal
	e.do(t, "POST", "/api/v1/trips", model.TripCreateRequest{
		TripIdentifier: "AF276",
		TravelerID:     traveler.ID,
		FromID:         paris.ID,
		ToID:           tokyo.ID,
		FlyTime:        arrive.Add(-12 * time.Hour),
		ArriveTime:     arrive,
		Capacity:       50,
	}, 201, &tripDeal)
	assert.Equal(t, model.MatchTripMatched, tripDeal.MatchState)

	var shipDeal model.Deal
	e.do(t, "POST", "/api/v1/shipments", model.ShipmentBatchRequest{
		OwnerID:      owner.ID,
		ExpectedDate: time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC),
		Shipments:    []model.ShipmentInput{{FromID: paris.ID, ToID: tokyo.ID, Weight: 20}},
	}, 201, &shipDeal)
	assert.Equal(t, 20.0, shipDeal.FullWeight)

	var found model.Page[*model.Deal]
	e.do(t, "GET", "/api/v1/search/trips?from=paris&to=tokyo&weight=20&date=2026-11-05", nil, 200, &found)
	require.Len(t, found.Items, 1)
	assert.Equal(t, tripDeal.ID, found.Items[0].ID)

	var offer model.Offer
	e.do(t, "POST", "/api/v1/offers", model.ProposeRequest{ShipmentDealID: shipDeal.ID, TripDealID: tripDeal.ID, SenderID: owner.ID}, 201, &offer)
	e.do(t, "POST", "/api/v1/offers", model.ProposeRequest{ShipmentDealID: shipDeal.ID, TripDealID: tripDeal.ID, SenderID: owner.ID}, 409, nil)

	var listed []*model.Offer
	e.do(t, "GET", fmt.Sprintf("/api/v1/deals/%d/offers?side=trip", tripDeal.ID), nil, 200, &listed)
	require.Len(t, listed, 1)

	var accepted model.Offer
	e.do(t, "POST", fmt.Sprintf("/api/v1/offers/%d/accept", offer.ID), nil, 200, &accepted)
	assert.Equal(t, model.OfferAccepted, accepted.Status)
	e.do(t, "POST", fmt.Sprintf("/api/v1/offers/%d/accept", offer.ID), nil, 409, nil)

	var trip model.Deal
	e.do(t, "GET", fmt.Sprintf("/api/v1/deals/%d", tripDeal.ID), nil, 200, &trip)
	assert.Equal(t, 30.0, trip.AvailableWeight)
	assert.Equal(t, model.MatchFullyMatched, trip.MatchState)
	require.NotNil(t, trip.Status)
	assert.Equal(t, model.SequencePending, trip.Status.Sequence)

	pusher := &recordingPusher{}
	proc := processor.NewOfferNotificationProcessor(e.users, pusher, processor.NewIdempotencyService(e.adapter, processor.DefaultIdempotencyConfig()))
	notifier, err := processor.NewNotifierService(e.adapter, proc, processor.NotifierConfig{Queue: e.queue, Workers: 1})
	require.NoError(t, err)
	require.NoError(t, notifier.Start())

	assert.Eventually(t, func() bool { return len(pusher.Sent()) == 2 }, 3*time.Second, 20*time.Millisecond)
	notifier.Stop()

	sent := pusher.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "tok-traveler", sent[0].Token)
	assert.Equal(t, string(model.OfferEventProposed), sent[0].Data["type"])
	assert.Equal(t, "tok-owner", sent[1].Token)
	assert.Equal(t, string(model.OfferEventAccepted), sent[1].Data["type"])
}

func TestOfferFlow_HealthAndUnknownRoute(t *testing.T) {
	e := newFlowEnv(t)

	var health map[string]string
	e.do(t, "GET", "/api/v1/health", nil, 200, &health)
	assert.Equal(t, "ok", health["status"])

	e.do(t, "GET", "/api/v1/nowhere", nil, 404, nil)
	e.do(t, "GET", "/api/v1/deals/999", nil, 404, nil)
}

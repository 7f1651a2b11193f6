package offer

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAuth(c *fiber.Ctx) error {
	c.Locals("user_id", "user-2")
	return c.Next()
}

func newTestApp(svc *Service) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app.Group("/offers"), svc, fakeAuth)
	return app
}

func TestGetOffersRequiresIDsOrAll(t *testing.T) {
	env := newTestService(t)
	app := newTestApp(env.svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/offers/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.mock.ExpectQuery(`SELECT doc, version FROM offers\s+WHERE \$1 = ANY\(participant_ids\)`).
		WithArgs("user-2").
		WillReturnRows(offerRow(t, sampleOffer()))
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/offers/?all-for-user=true", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []Offer
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Location)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestGetOffersByID(t *testing.T) {
	env := newTestService(t)
	app := newTestApp(env.svc)

	env.mock.ExpectQuery(`SELECT doc, version FROM offers WHERE id = ANY\(\$1\)`).
		WithArgs([]string{"offer-1", "offer-2"}).
		WillReturnRows(offerRow(t, sampleOffer()))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/offers/?id=offer-2&id=offer-1&id=offer-2", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestAroundHandlerValidatesQuery(t *testing.T) {
	env := newTestService(t)
	app := newTestApp(env.svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/offers/around?long=8.5&lat=47.3", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/offers/around?long=8.5&lat=47.3&radius=2&time_from=yesterday", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/offers/around?long=8.5&lat=47.3&radius=2&time_from=2024-06-01T08:00:00Z", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "time_from beyond the lookback")

	env.mock.ExpectQuery(`SELECT doc, version FROM offers WHERE`).
		WillReturnRows(offerRow(t))
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/offers/around?long=8.5&lat=47.3&radius=2&time_from=2024-06-01T11:00:00Z", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestRequestJoinHandlerConflict(t *testing.T) {
	env := newTestService(t)
	app := newTestApp(env.svc)
	o := sampleOffer()
	o.Participants = append(o.Participants, Participant{UserID: "user-2", Status: ParticipantRequested, Date: at(10, 0)})

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`SELECT doc, version FROM offers`).
		WithArgs("offer-1").
		WillReturnRows(offerRow(t, o))
	env.mock.ExpectRollback()

	req := httptest.NewRequest(http.MethodPut, "/offers/offer-1", bytes.NewReader([]byte(`{"message":"again"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestAcceptHandlerForbiddenForNonHost(t *testing.T) {
	env := newTestService(t)
	app := newTestApp(env.svc)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`SELECT doc, version FROM offers`).
		WithArgs("offer-1").
		WillReturnRows(offerRow(t, sampleOffer()))
	env.mock.ExpectRollback()

	resp, err := app.Test(httptest.NewRequest(http.MethodPut, "/offers/me/offer-1/accept/user-3", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestSetStatusHandlerValidatesBody(t *testing.T) {
	env := newTestService(t)
	app := newTestApp(env.svc)

	req := httptest.NewRequest(http.MethodPut, "/offers/me/offer-1", bytes.NewReader([]byte(`{"status":"archived"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWithdrawHandler(t *testing.T) {
	env := newTestService(t)
	app := newTestApp(env.svc)
	o := sampleOffer()
	o.Participants = append(o.Participants, Participant{UserID: "user-2", Status: ParticipantAccepted, Date: at(10, 0)})

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`SELECT doc, version FROM offers`).
		WithArgs("offer-1").
		WillReturnRows(offerRow(t, o))
	env.mock.ExpectExec(`UPDATE offers`).
		WithArgs("offer-1", int64(2), pgxmock.AnyArg(), "open", []string{"host-1", "user-2"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	env.mock.ExpectCommit()

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/offers/offer-1/participation", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got Offer
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got.Participants, 1)
	assert.Equal(t, ParticipantWithdrawn, got.Participants[0].Status)
	assert.Nil(t, got.Location)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestBBoxHandlerRequiresOrigin(t *testing.T) {
	env := newTestService(t)
	app := newTestApp(env.svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/offers/bbox?west=8.5&south=47.3&east=8.7&north=47.4", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

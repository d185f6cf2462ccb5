package invoice_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/ifirma-client/internal/converter"
	"github.com/ginjaninja78/ifirma-client/internal/envelope"
	"github.com/ginjaninja78/ifirma-client/internal/invoice"
	"github.com/ginjaninja78/ifirma-client/internal/invoice/mocks"
	"github.com/ginjaninja78/ifirma-client/internal/logctx"
	"github.com/ginjaninja78/ifirma-client/internal/transport"
	"github.com/ginjaninja78/ifirma-client/internal/types"
)

func jsonResponse(body string) *transport.Response {
	return &transport.Response{StatusCode: http.StatusOK, ContentType: "application/json", Body: []byte(body)}
}

func sampleAttrs() map[string]any {
	return map[string]any{
		"paid":         100,
		"type":         "gross",
		"issue_date":   map[string]any{"year": 2024, "month": 3, "day": 5},
		"payment_type": "wire",
		"customer":     map[string]any{"name": "ACME", "nip": "1234567890"},
		"items": []any{
			map[string]any{"vat_rate": 23, "quantity": 2, "name": "one"},
			map[string]any{"vat_rate": 8, "quantity": 1, "name": "two"},
		},
	}
}

func TestSubmitDomesticFinal(t *testing.T) {
	tr := mocks.NewMockTransport(t)
	var sent map[string]any
	tr.EXPECT().
		Send(mock.Anything, http.MethodPost, "/iapi/fakturakraj.json", mock.Anything).
		Run(func(_ context.Context, _ string, _ string, body any) {
			sent = body.(map[string]any)
		}).
		Return(jsonResponse(`{"response":{"Kod":0,"Informacja":"ok","Identyfikator":77}}`), nil).
		Once()

	res, err := invoice.NewService(tr).Submit(context.Background(), sampleAttrs(), types.KindDomestic, types.StageFinal)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.NoError(t, res.Err)
	require.NotNil(t, res.Envelope)
	assert.Equal(t, "77", res.Envelope.ID)

	assert.Equal(t, "BRT", sent["LiczOd"])
	assert.Equal(t, "PRZ", sent["SposobZaplaty"])
	assert.Equal(t, "2024-03-05", sent["DataWystawienia"])
	assert.Equal(t, []any{
		map[string]any{"StawkaVat": "0.23", "Ilosc": 2, "NazwaPelna": "one"},
		map[string]any{"StawkaVat": "0.08", "Ilosc": 1, "NazwaPelna": "two"},
	}, sent["Pozycje"])
}

func TestSubmitRoutesByKindAndStage(t *testing.T) {
	tests := []struct {
		kind  types.DocumentKind
		stage types.DocumentStage
		path  string
	}{
		{types.KindDomestic, types.StageFinal, "/iapi/fakturakraj.json"},
		{types.KindDomestic, types.StageProforma, "/iapi/fakturaproformakraj.json"},
		{types.KindCashOnDelivery, types.StageFinal, "/iapi/fakturawysylka.json"},
		{types.KindCashOnDelivery, types.StageProforma, "/iapi/fakturaproformawysylka.json"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			tr := mocks.NewMockTransport(t)
			tr.EXPECT().Send(mock.Anything, http.MethodPost, tt.path, mock.Anything).
				Return(jsonResponse(`{"response":{"Kod":0}}`), nil).Once()

			attrs := map[string]any{"number": "1"}
			_, err := invoice.NewService(tr).Submit(context.Background(), attrs, tt.kind, tt.stage)
			require.NoError(t, err)
		})
	}
}

func TestSubmitCashOnDeliveryUsesReceivedDateVariant(t *testing.T) {
	svc := invoice.NewService(mocks.NewMockTransport(t))

	_, err := svc.Submit(context.Background(), sampleAttrs(), types.KindCashOnDelivery, types.StageFinal)
	require.Error(t, err)
	assert.ErrorIs(t, err, converter.ErrSchemaMismatch)

	tr := mocks.NewMockTransport(t)
	var sent map[string]any
	tr.EXPECT().Send(mock.Anything, http.MethodPost, "/iapi/fakturawysylka.json", mock.Anything).
		Run(func(_ context.Context, _ string, _ string, body any) { sent = body.(map[string]any) }).
		Return(jsonResponse(`{"response":{"Kod":0}}`), nil).Once()

	attrs := map[string]any{"payment_receive_date": "2024-03-07", "paid": 10}
	res, err := invoice.NewService(tr).Submit(context.Background(), attrs, types.KindCashOnDelivery, types.StageFinal)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, map[string]any{"DataOtrzymaniaZaplaty": "2024-03-07", "Zaplacono": 10}, sent)
}

func TestSubmitTranslationErrorsSendNothing(t *testing.T) {
	svc := invoice.NewService(mocks.NewMockTransport(t))

	_, err := svc.Submit(context.Background(), map[string]any{"type": "brutto"}, types.KindDomestic, types.StageFinal)
	assert.ErrorIs(t, err, converter.ErrUnmappedValue)

	_, err = svc.Submit(context.Background(), map[string]any{"colour": "red"}, types.KindDomestic, types.StageFinal)
	assert.ErrorIs(t, err, converter.ErrSchemaMismatch)

	_, err = svc.Submit(context.Background(), nil, types.DocumentKind(9), types.StageFinal)
	assert.Error(t, err)
}

func TestSubmitTransportFailure(t *testing.T) {
	tr := mocks.NewMockTransport(t)
	cause := &transport.Error{Method: http.MethodPost, Path: "/iapi/fakturakraj.json", Err: errors.New("connection refused")}
	tr.EXPECT().Send(mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, cause).Once()

	res, err := invoice.NewService(tr).Submit(context.Background(), map[string]any{"number": "1"}, types.KindDomestic, types.StageFinal)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, transport.ErrTransport)
	assert.Nil(t, res.Envelope)
}

func TestSubmitRemoteFailure(t *testing.T) {
	tr := mocks.NewMockTransport(t)
	tr.EXPECT().Send(mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(jsonResponse(`{"response":{"Kod":201,"Informacja":"Niepoprawny NIP"}}`), nil).Once()

	res, err := invoice.NewService(tr).Submit(context.Background(), map[string]any{"number": "1"}, types.KindDomestic, types.StageFinal)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, envelope.ErrRemoteFailure)
	assert.Equal(t, "Niepoprawny NIP", res.Envelope.Message)
}

func TestSubmitMalformedEnvelope(t *testing.T) {
	tr := mocks.NewMockTransport(t)
	tr.EXPECT().Send(mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(jsonResponse(`{"unexpected":true}`), nil).Once()

	res, err := invoice.NewService(tr).Submit(context.Background(), map[string]any{"number": "1"}, types.KindDomestic, types.StageFinal)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, envelope.ErrMalformed)
}

func TestRetrieveSkipsRenderingOnFailedStatus(t *testing.T) {
	tr := mocks.NewMockTransport(t)
	status := jsonResponse(`{"response":{"Kod":404,"Informacja":"Nie znaleziono"}}`)
	tr.EXPECT().Send(mock.Anything, http.MethodGet, "/iapi/fakturakraj/12.json", nil).Return(status, nil).Once()

	res := invoice.NewService(tr).Retrieve(context.Background(), "12", types.KindDomestic, types.StageFinal, types.RepresentationPDF)

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, envelope.ErrRemoteFailure)
	assert.Equal(t, status.Body, res.Body)
	require.NotNil(t, res.Envelope)
	assert.Equal(t, 404, res.Envelope.Code)
	tr.AssertNumberOfCalls(t, "Send", 1)
}

func TestRetrieveSkipsRenderingWithoutStatusCode(t *testing.T) {
	tr := mocks.NewMockTransport(t)
	status := jsonResponse(`{"response":{"Informacja":"Brak dokumentu"}}`)
	tr.EXPECT().Send(mock.Anything, http.MethodGet, "/iapi/fakturakraj/12.json", nil).Return(status, nil).Once()

	res := invoice.NewService(tr).Retrieve(context.Background(), "12", types.KindDomestic, types.StageFinal, types.RepresentationPDF)

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, envelope.ErrMalformed)
	assert.Equal(t, status.Body, res.Body)
	tr.AssertNumberOfCalls(t, "Send", 1)
}

func TestRetrieveTrimsID(t *testing.T) {
	tr := mocks.NewMockTransport(t)
	tr.EXPECT().Send(mock.Anything, http.MethodGet, "/iapi/fakturakraj/12.json", nil).
		Return(jsonResponse(`{"response":{"Kod":0}}`), nil).Once()
	tr.EXPECT().Send(mock.Anything, http.MethodGet, "/iapi/fakturakraj/12.pdf", nil).
		Return(&transport.Response{StatusCode: http.StatusOK, ContentType: "application/pdf", Body: []byte("%PDF")}, nil).Once()

	var logs bytes.Buffer
	logger := slog.New(logctx.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))

	res := invoice.NewService(tr, invoice.WithLogger(logger)).Retrieve(context.Background(), " 12 ", types.KindDomestic, types.StageFinal, "")
	assert.True(t, res.Success)
	assert.Contains(t, logs.String(), `"id":"12"`)
	assert.NotContains(t, logs.String(), `" 12 "`)
}

func TestRetrieveFetchesSiblingRendering(t *testing.T) {
	tr := mocks.NewMockTransport(t)
	tr.EXPECT().Send(mock.Anything, http.MethodGet, "/iapi/fakturaproformawysylka/12.json", nil).
		Return(jsonResponse(`{"response":{"Kod":0}}`), nil).Once()
	tr.EXPECT().Send(mock.Anything, http.MethodGet, "/iapi/fakturaproformawysylka/12.pdf", nil).
		Return(&transport.Response{StatusCode: http.StatusOK, ContentType: "application/pdf", Body: []byte("%PDF")}, nil).Once()

	res := invoice.NewService(tr).Retrieve(context.Background(), "12", types.KindCashOnDelivery, types.StageProforma, "")

	assert.True(t, res.Success)
	assert.NoError(t, res.Err)
	assert.Nil(t, res.Envelope)
	assert.Equal(t, []byte("%PDF"), res.Body)
	assert.Equal(t, "application/pdf", res.ContentType)
}

func TestRetrieveRenderingFailure(t *testing.T) {
	tr := mocks.NewMockTransport(t)
	tr.EXPECT().Send(mock.Anything, http.MethodGet, "/iapi/fakturakraj/12.json", nil).
		Return(jsonResponse(`{"response":{"Kod":0}}`), nil).Once()
	tr.EXPECT().Send(mock.Anything, http.MethodGet, "/iapi/fakturakraj/12.xml", nil).
		Return(jsonResponse(`{"response":{"Kod":500,"Informacja":"blad"}}`), nil).Once()

	res := invoice.NewService(tr).Retrieve(context.Background(), "12", types.KindDomestic, types.StageFinal, types.RepresentationXML)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, envelope.ErrRemoteFailure)
}

func TestRetrieveStatusTransportFailure(t *testing.T) {
	tr := mocks.NewMockTransport(t)
	tr.EXPECT().Send(mock.Anything, http.MethodGet, "/iapi/fakturakraj/12.json", nil).
		Return(nil, &transport.Error{Err: errors.New("timeout")}).Once()

	res := invoice.NewService(tr).Retrieve(context.Background(), "12", types.KindDomestic, types.StageFinal, types.RepresentationPDF)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, transport.ErrTransport)
}

func TestRetrieveRejectsBadInput(t *testing.T) {
	svc := invoice.NewService(mocks.NewMockTransport(t))

	for _, tc := range []struct {
		id   string
		repr types.Representation
	}{
		{"", types.RepresentationPDF},
		{"12/../13", types.RepresentationPDF},
		{"12", "docx"},
		{"12", "json"},
	} {
		res := svc.Retrieve(context.Background(), tc.id, types.KindDomestic, types.StageFinal, tc.repr)
		assert.False(t, res.Success)
		assert.Error(t, res.Err)
	}
}

func TestList(t *testing.T) {
	tr := mocks.NewMockTransport(t)
	tr.EXPECT().Send(mock.Anything, http.MethodGet, "/iapi/fakturawysylka/list.json?limit=10", nil).
		Return(jsonResponse(`{"response":{"Kod":0,"Wynik":[{"Numer":"1"}]}}`), nil).Once()

	res := invoice.NewService(tr).List(context.Background(), types.KindCashOnDelivery)
	assert.True(t, res.Success)
	require.NotNil(t, res.Envelope)
	assert.JSONEq(t, `{"Kod":0,"Wynik":[{"Numer":"1"}]}`, string(res.Envelope.Data))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := invoice.New(transport.Config{Username: "jan"})
	assert.ErrorIs(t, err, types.ErrConfiguration)

	svc, err := invoice.New(transport.Config{Username: "jan", InvoicesKey: "00ff"})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestBuildPayload(t *testing.T) {
	payload, err := invoice.BuildPayload(map[string]any{"account_no": "12 3456 7890"}, types.KindDomestic)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"NumerKontaBankowego": "1234567890"}, payload)
}

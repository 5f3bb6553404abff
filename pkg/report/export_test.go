package report_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/abkit/pkg/report"
)

// MockS3Client is a mock implementation of the S3Client interface
type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func TestNewS3Exporter(t *testing.T) {
	t.Parallel()

	_, err := report.NewS3Exporter(context.Background(), report.S3Config{Region: "us-east-1"})
	assert.ErrorIs(t, err, report.ErrInvalidConfig)

	exp, err := report.NewS3Exporter(context.Background(),
		report.S3Config{Bucket: "reports", Region: "us-east-1", Prefix: "/ab/daily/"},
		report.WithS3Client(&MockS3Client{}),
	)
	require.NoError(t, err)
	assert.Equal(t, "ab/daily/20260314T092653Z.csv", exp.ObjectKey(sampleReport(t)))
}

func TestS3Exporter_Export(t *testing.T) {
	t.Parallel()

	t.Run("uploads csv", func(t *testing.T) {
		t.Parallel()
		client := &MockS3Client{}
		var body string
		client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			return aws.ToString(in.Bucket) == "reports" &&
				aws.ToString(in.Key) == "ab-reports/20260314T092653Z.csv" &&
				aws.ToString(in.ContentType) == "text/csv; charset=utf-8"
		}), mock.Anything).
			Run(func(args mock.Arguments) {
				in := args.Get(1).(*s3.PutObjectInput)
				data, _ := io.ReadAll(in.Body)
				body = string(data)
			}).
			Return(&s3.PutObjectOutput{}, nil).Once()

		exp, err := report.NewS3Exporter(context.Background(),
			report.S3Config{Bucket: "reports", Region: "us-east-1", Prefix: "ab-reports"},
			report.WithS3Client(client),
		)
		require.NoError(t, err)
		require.NoError(t, exp.Export(context.Background(), sampleReport(t)))

		client.AssertExpectations(t)
		records, err := csv.NewReader(strings.NewReader(body)).ReadAll()
		require.NoError(t, err)
		assert.Len(t, records, 5)
	})

	t.Run("access denied", func(t *testing.T) {
		t.Parallel()
		client := &MockS3Client{}
		client.On("PutObject", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}).Once()

		exp, err := report.NewS3Exporter(context.Background(),
			report.S3Config{Bucket: "reports", Region: "us-east-1"},
			report.WithS3Client(client),
		)
		require.NoError(t, err)
		err = exp.Export(context.Background(), sampleReport(t))
		assert.ErrorIs(t, err, report.ErrAccessDenied)
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		client := &MockS3Client{}
		client.On("PutObject", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, context.Canceled).Once()

		exp, err := report.NewS3Exporter(context.Background(),
			report.S3Config{Bucket: "reports", Region: "us-east-1"},
			report.WithS3Client(client),
		)
		require.NoError(t, err)
		err = exp.Export(context.Background(), sampleReport(t))
		assert.ErrorIs(t, err, report.ErrExportCanceled)
	})
}

// fakeTransport records OpenSearch requests and answers with a fixed status.
type fakeTransport struct {
	mu       sync.Mutex
	status   int
	requests []*http.Request
	bodies   []string
}

func (f *fakeTransport) Perform(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var body string
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		body = string(data)
	}
	f.requests = append(f.requests, req)
	f.bodies = append(f.bodies, body)
	return &http.Response{
		StatusCode: f.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(`{"result":"created"}`)),
	}, nil
}

func TestOpenSearchExporter_Export(t *testing.T) {
	t.Parallel()

	t.Run("one document per experiment", func(t *testing.T) {
		t.Parallel()
		tr := &fakeTransport{status: http.StatusCreated}
		exp := report.NewOpenSearchExporter(tr, report.WithIndex("ab-snapshots"), report.WithRefresh("true"))

		rep := sampleReport(t)
		require.NoError(t, exp.Export(context.Background(), rep))

		require.Len(t, tr.requests, 2)
		req := tr.requests[0]
		assert.Equal(t, http.MethodPut, req.Method)
		assert.Equal(t, "/ab-snapshots/_doc/"+report.DocumentID(rep, "big-logo"), req.URL.Path)
		assert.Equal(t, "true", req.URL.Query().Get("refresh"))

		var doc map[string]any
		require.NoError(t, json.Unmarshal([]byte(tr.bodies[0]), &doc))
		assert.Equal(t, "big-logo", doc["experiment"])
		assert.InDelta(t, 4, doc["visitors"], 0)
	})

	t.Run("rejected document", func(t *testing.T) {
		t.Parallel()
		tr := &fakeTransport{status: http.StatusBadRequest}
		err := report.NewOpenSearchExporter(tr).Export(context.Background(), sampleReport(t))
		assert.ErrorIs(t, err, report.ErrIndexRejected)
		assert.Len(t, tr.requests, 1)
	})
}

func TestExportAll(t *testing.T) {
	t.Parallel()
	errA := errors.New("a")
	err := report.ExportAll(context.Background(), sampleReport(t),
		exporterFunc(func(context.Context, *report.Report) error { return errA }),
		exporterFunc(func(context.Context, *report.Report) error { return nil }),
	)
	assert.ErrorIs(t, err, errA)
}

type exporterFunc func(context.Context, *report.Report) error

func (f exporterFunc) Export(ctx context.Context, r *report.Report) error { return f(ctx, r) }

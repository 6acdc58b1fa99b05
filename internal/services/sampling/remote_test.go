package sampling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"BrentShift/internal/domain/models"
)

func TestRemoteSample(t *testing.T) {
	var gotReq sampleRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/sample" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"chains":[{"tau":[[9,4]],"mu":[[0.01,-0.02,0.03]],"sigma":[0.015]}]}`))
	}))
	defer srv.Close()

	spec := models.ModelSpec{Returns: make([]float64, 20), Breaks: 2, MuPriorSD: 0.1, SigmaPriorSD: 0.1}
	opts := models.SampleOptions{Draws: 500, Tune: 250, Chains: 1, Seed: 42}

	post, err := NewRemote(srv.URL, time.Second).Sample(context.Background(), spec, opts)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if gotReq.Breaks != 2 || gotReq.Draws != 500 || gotReq.Tune != 250 || gotReq.Chains != 1 || gotReq.Seed != 42 {
		t.Errorf("request payload = %+v, want spec and options forwarded", gotReq)
	}
	if len(gotReq.Returns) != 20 {
		t.Errorf("forwarded %d returns, want 20", len(gotReq.Returns))
	}

	if len(post.Chains) != 1 {
		t.Fatalf("chains = %d, want 1", len(post.Chains))
	}
	if want := []int{4, 9}; !reflect.DeepEqual(post.Chains[0].Tau[0], want) {
		t.Errorf("tau row = %v, want re-sorted %v", post.Chains[0].Tau[0], want)
	}
	if want := []float64{0.01, -0.02, 0.03}; !reflect.DeepEqual(post.Chains[0].Mu[0], want) {
		t.Errorf("mu row = %v, want %v", post.Chains[0].Mu[0], want)
	}
	if post.Chains[0].Sigma[0] != 0.015 {
		t.Errorf("sigma draw = %v, want 0.015", post.Chains[0].Sigma[0])
	}
}

func TestRemoteSampleErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"worker failure", http.StatusInternalServerError, `sampler crashed`, "unexpected status 500"},
		{"no chains", http.StatusOK, `{"chains":[]}`, "no chains"},
		{"row width mismatch", http.StatusOK, `{"chains":[{"tau":[[3]],"mu":[[0.1,0.2]],"sigma":[0.01]}]}`, "break indices"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			spec := models.ModelSpec{Returns: make([]float64, 10), Breaks: 2, MuPriorSD: 0.1, SigmaPriorSD: 0.1}
			_, err := NewRemote(srv.URL, time.Second).Sample(context.Background(), spec, models.SampleOptions{Draws: 10, Tune: 5, Chains: 1})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

// Copyright 2025 Mentor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package retrieval

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/llm"
)

// fakeCompleter returns a canned classification answer.
type fakeCompleter struct {
	text    string
	err     error
	lastReq llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Text: f.text}, nil
}

func (f *fakeCompleter) GetModelName() string { return "fake-model" }
func (f *fakeCompleter) Close() error         { return nil }

var testCollections = []string{"regulation", "curriculum"}

func TestRouter_QueryAll(t *testing.T) {
	cfg := &config.RouterConfig{Strategy: config.RoutingQueryAll}
	r := NewRouter(cfg, testCollections, nil)

	route := r.Route(context.Background(), "học phí học kỳ này")
	if !reflect.DeepEqual(route.Collections, testCollections) {
		t.Errorf("collections = %v, want %v", route.Collections, testCollections)
	}
	if route.Strategy != config.RoutingQueryAll {
		t.Errorf("strategy = %s", route.Strategy)
	}
}

func TestRouter_LLMClassification(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   []string
	}{
		{name: "single collection", answer: "curriculum", want: []string{"curriculum"}},
		{name: "both named", answer: "regulation, curriculum", want: testCollections},
		{name: "all keyword", answer: "all", want: testCollections},
		{name: "vietnamese all", answer: "tất cả", want: testCollections},
		{name: "prose around name", answer: "Câu hỏi thuộc về regulation.", want: []string{"regulation"}},
		{name: "unparseable falls back to all", answer: "không rõ", want: testCollections},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCompleter{text: tt.answer}
			cfg := &config.RouterConfig{Strategy: config.RoutingLLMClassification}
			r := NewRouter(cfg, testCollections, fake)

			route := r.Route(context.Background(), "môn học ngành Khoa học máy tính")
			if !reflect.DeepEqual(route.Collections, tt.want) {
				t.Errorf("collections = %v, want %v", route.Collections, tt.want)
			}
			if route.Strategy != config.RoutingLLMClassification {
				t.Errorf("strategy = %s", route.Strategy)
			}
		})
	}
}

func TestRouter_ClassificationUsesTemperatureZero(t *testing.T) {
	fake := &fakeCompleter{text: "regulation"}
	cfg := &config.RouterConfig{Strategy: config.RoutingLLMClassification}
	r := NewRouter(cfg, testCollections, fake)

	r.Route(context.Background(), "quy chế thi")
	if fake.lastReq.Temperature == nil || *fake.lastReq.Temperature != 0 {
		t.Errorf("temperature = %v, want 0", fake.lastReq.Temperature)
	}
}

func TestRouter_LLMFailureFallsBackToAll(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("model unavailable")}
	cfg := &config.RouterConfig{Strategy: config.RoutingLLMClassification}
	r := NewRouter(cfg, testCollections, fake)

	route := r.Route(context.Background(), "điểm trung bình")
	if !reflect.DeepEqual(route.Collections, testCollections) {
		t.Errorf("collections = %v, want all on failure", route.Collections)
	}
}

func TestRouter_NilCompleterFallsBackToQueryAll(t *testing.T) {
	cfg := &config.RouterConfig{Strategy: config.RoutingLLMClassification}
	r := NewRouter(cfg, testCollections, nil)

	route := r.Route(context.Background(), "quy chế")
	if !reflect.DeepEqual(route.Collections, testCollections) {
		t.Errorf("collections = %v", route.Collections)
	}
	if route.Strategy != config.RoutingQueryAll {
		t.Errorf("strategy = %s, want query_all", route.Strategy)
	}
}

func TestRouter_ConfiguredSubset(t *testing.T) {
	cfg := &config.RouterConfig{
		Strategy:    config.RoutingQueryAll,
		Collections: []string{"regulation"},
	}
	r := NewRouter(cfg, testCollections, nil)

	route := r.Route(context.Background(), "bất kỳ")
	if !reflect.DeepEqual(route.Collections, []string{"regulation"}) {
		t.Errorf("collections = %v, want configured subset", route.Collections)
	}
}

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

// Package ratelimit paces outbound requests against per-minute budgets.
//
// The limiter tracks dispatch timestamps in a sliding window and blocks
// callers until sending one more request stays under the budget. It is
// used to keep LLM traffic inside free-tier quotas during long pipeline
// runs, where a burst of markdown-fix calls would otherwise exhaust the
// per-minute allowance within seconds.
//
// # Basic Usage
//
//	limiter := ratelimit.NewLimiter(15, ratelimit.NewMemoryStore())
//
//	for _, section := range sections {
//	    if err := limiter.Wait(ctx); err != nil {
//	        return err // context cancelled
//	    }
//	    resp, err := llm.Complete(ctx, prompt(section))
//	    ...
//	}
//
// A limit of 0 disables pacing; Wait returns immediately.
package ratelimit

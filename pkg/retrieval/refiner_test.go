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

import "testing"

func TestExpandAcronyms(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "known acronym",
			in:   "cách ĐKHP trực tuyến",
			want: "cách ĐKHP (đăng ký học phần) trực tuyến",
		},
		{
			name: "multiple acronyms",
			in:   "CTĐT có bao nhiêu TC",
			want: "CTĐT (chương trình đào tạo) có bao nhiêu TC (tín chỉ)",
		},
		{
			name: "trailing punctuation",
			in:   "GDTC có bắt buộc không, ĐKHP?",
			want: "GDTC (giáo dục thể chất) có bắt buộc không, ĐKHP (đăng ký học phần)?",
		},
		{
			name: "lowercase stays untouched",
			in:   "các tc trong hk",
			want: "các tc trong hk",
		},
		{
			name: "no acronyms",
			in:   "điều kiện tốt nghiệp",
			want: "điều kiện tốt nghiệp",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandAcronyms(tt.in); got != tt.want {
				t.Errorf("ExpandAcronyms(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExpandAcronyms_Idempotent(t *testing.T) {
	once := ExpandAcronyms("lịch ĐKHP HK 2")
	twice := ExpandAcronyms(once)
	if once != twice {
		t.Errorf("expansion not idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}
}

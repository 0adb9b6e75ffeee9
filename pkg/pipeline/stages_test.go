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

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mentorvn/mentor/pkg/config"
)

const letterheadFixture = `ĐẠI HỌC QUỐC GIA TP.HCM
**TRƯỜNG ĐẠI HỌC CÔNG NGHỆ THÔNG TIN**

CỘNG HÒA XÃ HỘI CHỦ NGHĨA VIỆT NAM
Độc lập - Tự do - Hạnh phúc

---

Số: 790/QĐ-ĐHCNTT
TP. Hồ Chí Minh, ngày 28 tháng 9 năm 2022

# QUYẾT ĐỊNH
Về việc ban hành Quy chế đào tạo theo học chế tín chỉ
`

func TestCleanMarkdown_StripsLetterhead(t *testing.T) {
	got := cleanMarkdown(letterheadFixture)
	if !strings.HasPrefix(got, "# QUYẾT ĐỊNH") {
		t.Errorf("letterhead not cut, document starts with %q", firstLine(got))
	}
	if strings.Contains(got, "Độc lập") {
		t.Errorf("motto line survived the cut:\n%s", got)
	}
}

func TestCleanMarkdown_NoLetterheadUnchanged(t *testing.T) {
	content := "# Giới thiệu\n\nNội dung bình thường của tài liệu.\n"
	if got := cleanMarkdown(content); got != content {
		t.Errorf("document without letterhead changed:\n%q", got)
	}
}

func TestCleanMarkdown_CutsAtBodyWithoutMarker(t *testing.T) {
	content := "TRƯỜNG ĐẠI HỌC CÔNG NGHỆ THÔNG TIN\nSố: 12/TB-ĐHCNTT\nNhà trường gửi đến sinh viên nội dung sau.\nChi tiết bên dưới."
	got := cleanMarkdown(content)
	if !strings.HasPrefix(got, "Nhà trường gửi đến sinh viên") {
		t.Errorf("cut point wrong, got %q", firstLine(got))
	}
}

func TestCleanMarkdown_MarkerAtTopUnchanged(t *testing.T) {
	content := "QUY CHẾ ĐÀO TẠO\n\nĐiều 1. Phạm vi điều chỉnh.\n"
	if got := cleanMarkdown(content); got != content {
		t.Errorf("document opening with a marker changed:\n%q", got)
	}
}

func TestCleanMarkdown_BodyDateLineIsNotLetterhead(t *testing.T) {
	content := "Thông tin tuyển sinh được công bố rộng rãi đến toàn thể thí sinh và phụ huynh vào ngày 15 tháng 8 năm 2024 trên cổng thông tin.\nPhần tiếp theo."
	if got := cleanMarkdown(content); got != content {
		t.Errorf("long body sentence mentioning a date was treated as letterhead")
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func TestNormalizeMarkdown(t *testing.T) {
	in := "# Tiêu đề\r\n\r\n• Mục một  \n●\tMục hai\n\n\n\nĐoạn của văn bản. \n"
	got := normalizeMarkdown(in)

	if strings.Contains(got, "\r") {
		t.Errorf("carriage returns survived")
	}
	if !strings.Contains(got, "- Mục một\n") || !strings.Contains(got, "- Mục hai") {
		t.Errorf("bullets not unified:\n%q", got)
	}
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("blank runs not collapsed:\n%q", got)
	}
	if !strings.Contains(got, "của") {
		t.Errorf("text not in NFC form:\n%q", got)
	}
	if strings.Contains(got, " ") {
		t.Errorf("no-break space survived")
	}
	if !strings.HasSuffix(got, ".\n") {
		t.Errorf("missing single trailing newline: %q", got[len(got)-4:])
	}

	if again := normalizeMarkdown(got); again != got {
		t.Errorf("not idempotent:\n%q\nvs\n%q", got, again)
	}
}

func defaultFilterConfig() config.FilterConfig {
	cfg := config.FilterConfig{}
	cfg.SetDefaults()
	return cfg
}

// goodRegulationText is long and structured enough to pass every
// quality rule.
const goodRegulationText = `# QUY CHẾ ĐÀO TẠO

Điều 1. Phạm vi điều chỉnh và đối tượng áp dụng

Quy chế này quy định về tổ chức đào tạo trình độ đại học theo học chế tín chỉ, bao gồm chương trình đào tạo, thời gian học tập, tổ chức giảng dạy, đánh giá kết quả học tập và xét tốt nghiệp.

Điều 2. Chương trình đào tạo

Chương trình đào tạo được xây dựng theo đơn vị tín chỉ, thể hiện mục tiêu, khối lượng kiến thức, cấu trúc các học phần, phương pháp đánh giá và điều kiện hoàn thành khóa học của sinh viên.

Điều 3. Thời gian học tập

Thời gian theo kế hoạch chuẩn toàn khóa là bốn năm, sinh viên được phép kéo dài tối đa thêm hai năm so với kế hoạch.`

func TestEvaluateQuality(t *testing.T) {
	cfg := defaultFilterConfig()

	t.Run("pass", func(t *testing.T) {
		v := evaluateQuality(goodRegulationText, cfg)
		if v.Reject {
			t.Fatalf("good document rejected: %+v", v)
		}
		if v.WordCount < cfg.MinWords {
			t.Errorf("fixture too short for the test: %d words", v.WordCount)
		}
		if v.Score < cfg.MinQualityScore {
			t.Errorf("fixture score %v below threshold", v.Score)
		}
	})

	t.Run("too short", func(t *testing.T) {
		v := evaluateQuality("Trang đang cập nhật.", cfg)
		if !v.Reject || v.Reason != rejectTooShort {
			t.Errorf("verdict = %+v", v)
		}
	})

	t.Run("error page", func(t *testing.T) {
		content := "Không tìm thấy trang yêu cầu. " + strings.Repeat("Vui lòng quay lại trang chủ và thử tìm kiếm với từ khóa khác. ", 10)
		v := evaluateQuality(content, cfg)
		if !v.Reject || v.Reason != rejectErrorPage {
			t.Errorf("verdict = %+v", v)
		}
	})

	t.Run("navigation page", func(t *testing.T) {
		var b strings.Builder
		for i := 0; i < 30; i++ {
			b.WriteString("- [Thông tin đào tạo chính quy](https://uit.example.vn/dao-tao/")
			b.WriteString(strings.Repeat("x", i+1))
			b.WriteString(")\n")
		}
		v := evaluateQuality(b.String(), cfg)
		if !v.Reject || v.Reason != rejectNavigation {
			t.Errorf("verdict = %+v", v)
		}
	})

	t.Run("low quality", func(t *testing.T) {
		v := evaluateQuality(strings.Repeat("nội dung ", 40), cfg)
		if !v.Reject || v.Reason != rejectLowQuality {
			t.Errorf("verdict = %+v", v)
		}
	})
}

func TestFilterStage_WritesRejectionArtifacts(t *testing.T) {
	dir := t.TempDir()
	rejectedRoot := filepath.Join(dir, ".rejected")
	doc := &Document{Category: "regulation", ID: "trang-loi", Dir: dir}
	stage := NewFilterStage(config.FilterConfig{}, rejectedRoot)

	input := writeInput(t, dir, FileNormalized, "Không tìm thấy trang. "+strings.Repeat("Vui lòng thử lại với đường dẫn hợp lệ khác nhé bạn. ", 8))

	_, err := stage.Execute(context.Background(), doc, input, doc.ArtifactPath(FileFiltered))
	var rejection *QualityRejection
	if !errors.As(err, &rejection) {
		t.Fatalf("expected QualityRejection, got %v", err)
	}
	if rejection.Reason != rejectErrorPage {
		t.Errorf("reason = %q", rejection.Reason)
	}

	if _, err := os.Stat(filepath.Join(rejectedRoot, "regulation", "trang-loi.md")); err != nil {
		t.Errorf("rejected content not written: %v", err)
	}
	verdictData, err := os.ReadFile(filepath.Join(rejectedRoot, "regulation", "trang-loi.json"))
	if err != nil {
		t.Fatalf("verdict file: %v", err)
	}
	var verdict map[string]any
	if err := json.Unmarshal(verdictData, &verdict); err != nil {
		t.Fatalf("verdict is not JSON: %v", err)
	}
	if verdict["reason"] != rejectErrorPage {
		t.Errorf("verdict = %v", verdict)
	}
	if _, err := os.Stat(doc.ArtifactPath(FileFiltered)); !os.IsNotExist(err) {
		t.Errorf("rejected document must not produce %s", FileFiltered)
	}
}

func TestFilterStage_PassWritesFilteredCopy(t *testing.T) {
	dir := t.TempDir()
	doc := &Document{Category: "regulation", ID: "quy-che", Dir: dir}
	stage := NewFilterStage(config.FilterConfig{}, filepath.Join(dir, ".rejected"))

	input := writeInput(t, dir, FileNormalized, goodRegulationText)

	meta, err := stage.Execute(context.Background(), doc, input, doc.ArtifactPath(FileFiltered))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if meta["word_count"].(int) < 50 {
		t.Errorf("metadata word_count = %v", meta["word_count"])
	}

	out, err := os.ReadFile(doc.ArtifactPath(FileFiltered))
	if err != nil {
		t.Fatalf("filtered copy: %v", err)
	}
	if string(out) != goodRegulationText {
		t.Errorf("filter must pass content through unchanged")
	}
}

func TestFlattenTables(t *testing.T) {
	in := `## Danh sách học phần

| Mã MH | Tên môn học | Số TC |
| --- | --- | --- |
| IT001 | Nhập môn lập trình | 4 |
| IT002 | | 3 |

Ghi chú cuối trang.`

	got, tables := flattenTables(in)
	if tables != 1 {
		t.Fatalf("tables = %d, want 1", tables)
	}
	if !strings.Contains(got, "Mã MH: IT001; Tên môn học: Nhập môn lập trình; Số TC: 4") {
		t.Errorf("row not labeled:\n%s", got)
	}
	if !strings.Contains(got, "Mã MH: IT002; Số TC: 3") {
		t.Errorf("empty cell not dropped:\n%s", got)
	}
	if strings.Contains(got, "---") {
		t.Errorf("separator row survived:\n%s", got)
	}
	if !strings.Contains(got, "## Danh sách học phần") || !strings.Contains(got, "Ghi chú cuối trang.") {
		t.Errorf("surrounding text lost:\n%s", got)
	}
}

func TestFlattenTables_IgnoresLoosePipes(t *testing.T) {
	in := "Điểm tổng kết = lý thuyết | thực hành theo tỷ lệ 60 | 40.\nDòng tiếp theo."
	got, tables := flattenTables(in)
	if tables != 0 {
		t.Errorf("pipes without separator counted as table")
	}
	if got != in {
		t.Errorf("content changed:\n%q", got)
	}
}

func TestSanitizeMetadata(t *testing.T) {
	got := sanitizeMetadata(map[string]any{
		"title":      "Quy chế đào tạo",
		"effective":  true,
		"year":       float64(2022),
		"majors":     []any{"Công nghệ thông tin", "Khoa học máy tính"},
		"extra":      map[string]any{"source": "790/QĐ-ĐHCNTT"},
		"empty_meta": nil,
	})

	if got["title"] != "Quy chế đào tạo" {
		t.Errorf("string mangled: %v", got["title"])
	}
	if got["effective"] != "true" {
		t.Errorf("bool not stringified: %v", got["effective"])
	}
	if got["year"] != float64(2022) {
		t.Errorf("number mangled: %v", got["year"])
	}
	if got["majors"] != "Công nghệ thông tin, Khoa học máy tính" {
		t.Errorf("list not joined: %v", got["majors"])
	}
	if !strings.Contains(got["extra"].(string), `"source"`) {
		t.Errorf("nested map not JSON encoded: %v", got["extra"])
	}
	if _, ok := got["empty_meta"]; ok {
		t.Errorf("nil value kept")
	}
}

func TestFlattenMetaValue(t *testing.T) {
	if got := flattenMetaValue([]any{"a", float64(2)}); got != "a, 2" {
		t.Errorf("list = %v", got)
	}
	if got := flattenMetaValue(map[string]any{"k": "v"}); got != `{"k":"v"}` {
		t.Errorf("map = %v", got)
	}
	if got := flattenMetaValue("giữ nguyên"); got != "giữ nguyên" {
		t.Errorf("string = %v", got)
	}
	if got := flattenMetaValue(float64(3.5)); got != 3.5 {
		t.Errorf("number = %v", got)
	}
}

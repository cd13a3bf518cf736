package bot

import (
	"errors"
	"fmt"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/maxaizer/scout-pipeline/internal/repositories"
	"github.com/maxaizer/scout-pipeline/internal/services"
	"strconv"
	"strings"
	"unicode/utf8"
)

const maxMessageLength = 4000

var userErrors = map[error]string{
	services.ErrNoPosition:             "먼저 /position 으로 포지션을 선택해 주세요.",
	services.ErrPositionNotFound:       "포지션을 찾을 수 없습니다.",
	services.ErrEmptyJobDescription:    "Job Description이 비어 있습니다. /jd 로 입력해 주세요.",
	services.ErrEmptyJobType:           "직무 유형을 입력해야 합니다.",
	services.ErrCombinePreconditions:   "키워드 추출(/extract)과 정제(/refine)를 먼저 실행해 주세요.",
	services.ErrEmptyKeywords:          "통합 키워드가 없습니다. /combine 을 먼저 실행해 주세요.",
	services.ErrKeywordCount:           "AI 응답의 키워드 개수가 올바르지 않습니다. 다시 시도해 주세요.",
	services.ErrEmptyQuery:             "실행할 쿼리가 없습니다. /query 로 생성해 주세요.",
	services.ErrNoResults:              "선택할 후보자가 없습니다. /execute 를 먼저 실행해 주세요.",
	services.ErrUnknownCandidate:       "결과에 없는 후보자입니다.",
	services.ErrNoSelection:            "선택된 후보자가 없습니다.",
	services.ErrInvalidRun:             "유효한 실행 기록이 없습니다. /execute 를 먼저 실행해 주세요.",
	services.ErrNoMessage:              "스카우트 메시지가 없습니다. /message 로 작성해 주세요.",
	services.ErrMessageLocked:          "이미 발송된 메시지는 수정할 수 없습니다.",
	services.ErrCandidateNotFound:      "이 포지션에 매핑된 후보자가 아닙니다.",
	services.ErrNoScoutURL:             "포지션에 스카우트 URL이 없습니다. /scout_url 로 등록해 주세요.",
	services.ErrUnknownStep:            "알 수 없는 단계입니다.",
	services.ErrInvalidExpiry:          "유효기간은 오늘부터 30일 이내여야 합니다.",
	services.ErrContactNotCollected:    "수락으로 변경했지만 연락처를 가져오지 못했습니다. /set_status <키> 수락 <이름> <연락처> 로 입력해 주세요.",
	errorNoPositions:                   "조건에 맞는 포지션이 없습니다.",
	repositories.ErrUnboundedDelete:    "선택 목록이 비어 있어 저장하지 않았습니다.",
	repositories.ErrMissingCandidateKey: "쿼리 결과에 source_key 컬럼이 있어야 합니다.",
}

// errorText turns an error into an operator message. Unknown errors are shown as is.
func errorText(err error) string {
	for target, text := range userErrors {
		if errors.Is(err, target) {
			return text
		}
	}
	return "오류: " + err.Error()
}

func truncate(text string) string {
	if len(text) <= maxMessageLength {
		return text
	}
	cut := maxMessageLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "\n…"
}

func formatKeywords(title string, result *services.KeywordResult) string {
	if result == nil || len(result.Keywords) == 0 {
		return title + ": -"
	}
	text := fmt.Sprintf("%s (%d): %s", title, len(result.Keywords), result.Text())
	if result.Edited {
		text += " (수정됨)"
	}
	return text
}

func formatPositions(positions []entities.Position) string {
	if len(positions) == 0 {
		return "포지션이 없습니다."
	}
	var sb strings.Builder
	for _, p := range positions {
		fmt.Fprintf(&sb, "%d: %s, 차수 %s, 후보자 %d명\n", p.ID, p.DisplayName(), p.Demand, p.CandidateCount)
	}
	return sb.String()
}

func formatDetails(details services.PositionDetails) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "포지션 %d: %s\n", details.Position.ID, details.Position.DisplayName())
	if details.Position.ScoutURL != "" {
		fmt.Fprintf(&sb, "스카우트 URL: %s\n", details.Position.ScoutURL)
	}
	sb.WriteString(formatFunnel(details.Funnel))
	if len(details.Runs) > 0 {
		sb.WriteString("\n최근 실행:\n")
		sb.WriteString(formatRuns(details.Runs))
	}
	return sb.String()
}

func formatFunnel(funnel map[entities.ScoutStatus]int64) string {
	parts := make([]string, 0, len(entities.ScoutStatuses))
	for _, status := range entities.ScoutStatuses {
		parts = append(parts, fmt.Sprintf("%s %d", statusLabel(status), funnel[status]))
	}
	return "퍼널: " + strings.Join(parts, ", ")
}

func formatRuns(runs []entities.PipelineRun) string {
	var sb strings.Builder
	for _, run := range runs {
		fmt.Fprintf(&sb, "#%d %s, %s, %d명\n", run.ID, run.CreatedAt.Format("2006-01-02 15:04"), run.Status, run.FilteredCount)
	}
	return sb.String()
}

func formatResult(result entities.QueryResult) string {
	if len(result.Rows) == 0 {
		return "조건에 맞는 후보자가 없습니다."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "후보자 %d명:\n", len(result.Rows))
	for i, row := range result.Rows {
		sb.WriteString(formatRow(i+1, row, result.Columns))
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatRow(number int, row entities.CandidateRow, columns []string) string {
	text := strconv.Itoa(number) + ". " + row.CandidateKey
	if row.MatchCount != nil {
		text += fmt.Sprintf(" (일치 %d)", *row.MatchCount)
	}

	var values []string
	for i, value := range row.Values {
		if i >= len(columns) || columns[i] == "source_key" || columns[i] == "keyword_match_count" || value == nil {
			continue
		}
		if s := fmt.Sprint(value); s != "" {
			values = append(values, s)
		}
		if len(values) == 4 {
			break
		}
	}
	if len(values) > 0 {
		text += " | " + strings.Join(values, " | ")
	}
	return text
}

func formatSelection(pc services.PipelineContext) string {
	if pc.Results == nil {
		return "선택할 후보자가 없습니다."
	}
	var sb strings.Builder
	for i, row := range pc.Results.Rows {
		state := pc.Selection[row.CandidateKey]
		mark := "[ ]"
		if state.Selected {
			mark = "[v]"
		}
		if state.Fixed {
			mark += "🔒"
		}
		fmt.Fprintf(&sb, "%s %s\n", mark, formatRow(i+1, row, pc.Results.Columns))
	}
	fmt.Fprintf(&sb, "\n선택됨: %d/%d", len(pc.SelectedKeys()), len(pc.Results.Rows))
	return sb.String()
}

func formatReport(report services.ResponseReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "포지션 %d 응답 확인: %d명 확인\n", report.PositionID, report.Checked)
	sb.WriteString(formatUpdates(report.Updated))
	if len(report.Errors) > 0 {
		sb.WriteString("확인 실패:\n" + strings.Join(report.Errors, "\n"))
	}
	return sb.String()
}

func formatUpdates(updated map[entities.ScoutStatus]int) string {
	var sb strings.Builder
	for _, status := range entities.ScoutStatuses {
		if count := updated[status]; count > 0 {
			fmt.Fprintf(&sb, "%s: %d\n", statusLabel(status), count)
		}
	}
	if sb.Len() == 0 {
		return "변경된 상태 없음\n"
	}
	return sb.String()
}

func statusLabel(status entities.ScoutStatus) string {
	switch status {
	case entities.StatusExtracted:
		return "추출"
	case entities.StatusSent:
		return "발송"
	case entities.StatusAccepted:
		return "수락"
	case entities.StatusRejected:
		return "거절"
	case entities.StatusNoResponseRejected:
		return "미응답"
	default:
		return string(status)
	}
}

func parseStatusLabel(input string) (entities.ScoutStatus, error) {
	for _, status := range entities.ScoutStatuses {
		if input == statusLabel(status) {
			return status, nil
		}
	}
	return entities.ParseScoutStatus(input)
}

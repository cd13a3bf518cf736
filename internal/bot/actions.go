package bot

import (
	"context"
	"fmt"
	"github.com/maxaizer/scout-pipeline/internal/clients/scraper"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/maxaizer/scout-pipeline/internal/services"
	"strconv"
	"strings"
)

// action is a one-shot command. It runs with the session locked and returns the reply.
type action func(session *userContext, args string) string

func (b *Bot) actions() map[string]action {
	return map[string]action{
		"positions":     b.listPositions,
		"status":        b.showStatus,
		"extract":       b.extract,
		"combine":       b.combine,
		"query":         b.generateQuery,
		"execute":       b.execute,
		"send":          b.startDelivery,
		"retry":         b.retryFailed,
		"cancel_send":   b.cancelDelivery,
		"mark_sent":     b.markSent,
		"responses":     b.checkResponses,
		"set_status":    b.setStatus,
		"runs":          b.listRuns,
		"resume":        b.resumeRun,
		"restart":       b.restartRun,
		"templates":     b.listTemplates,
		"scrape":        b.requestScraping,
		"scrape_status": b.scrapingStatus,
	}
}

func (b *Bot) listPositions(_ *userContext, args string) string {
	positions, err := b.services.Positions.Search(context.Background(), args, 0)
	if err != nil {
		return errorText(err)
	}
	return formatPositions(positions)
}

func (b *Bot) showStatus(session *userContext, _ string) string {
	pc := session.pipeline
	if pc.PositionID == 0 {
		return errorText(services.ErrNoPosition)
	}

	lines := []string{fmt.Sprintf("포지션: %d", pc.PositionID)}
	if pc.RunID != 0 {
		lines = append(lines, fmt.Sprintf("실행: #%d", pc.RunID))
	}
	jd := []rune(pc.JobDescription)
	if len(jd) > 80 {
		jd = append(jd[:80], '…')
	}
	lines = append(lines, "JD: "+string(jd),
		formatKeywords("추출 키워드", pc.Extracted),
		formatKeywords("정제 키워드", pc.Refined),
		formatKeywords("통합 키워드", pc.Combined))
	if pc.Query != nil {
		lines = append(lines, "쿼리:\n"+pc.Query.Text)
	}
	if pc.Results != nil {
		lines = append(lines, fmt.Sprintf("결과: %d명, 선택 %d명, 최종 %d명",
			len(pc.Results.Rows), len(pc.SelectedKeys()), len(pc.Finalists)))
	}
	if pc.Message != nil {
		lines = append(lines, "메시지: "+pc.Message.Title)
	}
	if session.delivering {
		lines = append(lines, "발송 진행 중")
	} else if job := session.job; job != nil {
		lines = append(lines, fmt.Sprintf("발송: 성공 %d, 실패 %d", job.SuccessCount, len(job.Failed)))
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) extract(session *userContext, _ string) string {
	next, err := b.services.Keywords.Extract(context.Background(), session.pipeline)
	if err != nil {
		return errorText(err)
	}
	session.pipeline = next
	return formatKeywords("추출 키워드", next.Extracted) + "\n\n/refine 으로 직무 유형 키워드를 생성하세요."
}

func (b *Bot) combine(session *userContext, _ string) string {
	next, err := b.services.Keywords.Combine(context.Background(), session.pipeline)
	if err != nil {
		return errorText(err)
	}
	session.pipeline = next
	return formatKeywords("통합 키워드", next.Combined) + "\n\n/query 로 검색 쿼리를 생성하세요."
}

func (b *Bot) generateQuery(session *userContext, _ string) string {
	next, err := b.services.Query.GenerateQuery(context.Background(), session.pipeline)
	if err != nil {
		return errorText(err)
	}
	session.pipeline = next
	return next.Query.Text + "\n\n/execute 로 실행하거나 /edit_query 로 수정하세요."
}

func (b *Bot) execute(session *userContext, _ string) string {
	next, result, err := b.services.Query.Execute(context.Background(), session.pipeline, session.chatID)
	session.pipeline = next
	if err != nil {
		return errorText(err)
	}
	return formatResult(result) + "\n/select 로 최종 후보자를 선택하세요."
}

func (b *Bot) startDelivery(session *userContext, _ string) string {
	if session.delivering {
		return "이미 발송이 진행 중입니다."
	}
	pc := session.pipeline
	if pc.Message == nil {
		return errorText(services.ErrNoMessage)
	}

	b.runDelivery(session, func(ctx context.Context) (*services.DeliveryJob, error) {
		return b.services.Outreach.StartDelivery(ctx, pc, session.chatID, nil)
	})
	return "발송을 시작합니다. /cancel_send 로 중단할 수 있습니다."
}

func (b *Bot) retryFailed(session *userContext, _ string) string {
	if session.delivering {
		return "이미 발송이 진행 중입니다."
	}
	job := session.job
	if job == nil || len(job.Failed) == 0 {
		return "재시도할 실패 건이 없습니다."
	}

	b.runDelivery(session, func(ctx context.Context) (*services.DeliveryJob, error) {
		return job, b.services.Outreach.RetryFailed(ctx, job, nil)
	})
	return fmt.Sprintf("실패한 %d명에게 다시 발송합니다.", len(job.Failed))
}

// runDelivery runs the outreach loop outside the session lock. The session
// result fields are written back under the lock.
func (b *Bot) runDelivery(session *userContext, deliver func(ctx context.Context) (*services.DeliveryJob, error)) {
	ctx, cancel := context.WithCancel(b.ctx)
	session.delivering = true
	session.cancelDelivery = cancel
	b.deliveries.Add(1)

	go func() {
		defer b.deliveries.Done()
		defer cancel()
		job, err := deliver(ctx)

		session.mu.Lock()
		defer session.mu.Unlock()
		session.delivering = false
		session.cancelDelivery = nil
		if job != nil {
			session.job = job
		}
		if err != nil {
			b.reply(session.chatID, errorText(err))
		}
	}()
}

func (b *Bot) cancelDelivery(session *userContext, _ string) string {
	if session.cancelDelivery == nil {
		return "진행 중인 발송이 없습니다."
	}
	session.cancelDelivery()
	return "현재 후보자 처리 후 발송을 중단합니다."
}

func (b *Bot) markSent(session *userContext, args string) string {
	key := strings.TrimSpace(args)
	if key == "" {
		return "사용법: /mark_sent <후보자 키>"
	}
	if session.delivering {
		return "발송이 끝난 뒤 다시 시도해 주세요."
	}
	if err := b.services.Outreach.MarkSentManually(context.Background(), session.pipeline, session.job, key); err != nil {
		return errorText(err)
	}
	return key + " 후보자를 발송 완료로 기록했습니다."
}

func (b *Bot) checkResponses(session *userContext, _ string) string {
	if session.pipeline.PositionID == 0 {
		return errorText(services.ErrNoPosition)
	}
	report, err := b.services.Responses.CheckPosition(context.Background(), session.pipeline.PositionID, session.chatID)
	if err != nil {
		return errorText(err)
	}
	return formatReport(report)
}

func (b *Bot) setStatus(session *userContext, args string) string {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "사용법: /set_status <후보자 키> <상태> [이름] [연락처]\n상태: 추출, 발송, 수락, 거절, 미응답"
	}
	status, err := parseStatusLabel(fields[1])
	if err != nil {
		return errorText(err)
	}

	var contact *entities.ContactInfo
	if len(fields) > 2 {
		if status != entities.StatusAccepted {
			return "연락처는 수락 상태에서만 입력할 수 있습니다."
		}
		contact = &entities.ContactInfo{Name: fields[2], Contact: strings.Join(fields[3:], " ")}
	}

	err = b.services.Responses.SetStatusManually(context.Background(), session.pipeline.PositionID, fields[0], status, contact)
	if err != nil {
		return errorText(err)
	}
	return fmt.Sprintf("%s 상태를 %s(으)로 변경했습니다.", fields[0], statusLabel(status))
}

func (b *Bot) listRuns(session *userContext, _ string) string {
	runs, err := b.services.Runs.History(context.Background(), session.pipeline.PositionID, 10)
	if err != nil {
		return errorText(err)
	}
	if len(runs) == 0 {
		return "실행 기록이 없습니다."
	}
	return formatRuns(runs) + "\n/resume <번호> 로 이어서 진행할 수 있습니다."
}

func (b *Bot) resumeRun(session *userContext, args string) string {
	runID, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(args), "#"))
	if err != nil {
		return "사용법: /resume <실행 번호>"
	}
	next, err := b.services.Runs.Resume(context.Background(), runID)
	if err != nil {
		return errorText(err)
	}
	session.pipeline = next
	return b.showStatus(session, "")
}

func (b *Bot) restartRun(session *userContext, _ string) string {
	session.pipeline = session.pipeline.Restart()
	return "실행을 초기화했습니다. /extract 부터 다시 진행하세요."
}

func (b *Bot) listTemplates(_ *userContext, _ string) string {
	ctx := context.Background()
	var lines []string
	for _, step := range entities.TemplateSteps {
		current, err := b.services.Templates.Current(ctx, step)
		if err != nil {
			return errorText(err)
		}
		stored, err := b.services.Templates.List(ctx, step)
		if err != nil {
			return errorText(err)
		}
		lines = append(lines, fmt.Sprintf("%s: 사용 중 \"%s\", 저장된 템플릿 %d개", step, current.Name, len(stored)))
	}
	return strings.Join(lines, "\n") + "\n\n/save_template 로 새 템플릿을 저장하세요."
}

func (b *Bot) requestScraping(_ *userContext, args string) string {
	platform := strings.TrimSpace(args)
	if platform == "" {
		platform = scraper.PlatformSaramin
	}
	if err := b.services.Scraping.RequestScraping(context.Background(), platform); err != nil {
		return errorText(err)
	}
	return platform + " 스크래핑을 요청했습니다. /scrape_status 로 진행 상황을 확인하세요."
}

func (b *Bot) scrapingStatus(_ *userContext, _ string) string {
	status, err := b.services.Scraping.Status(context.Background())
	if err != nil {
		return errorText(err)
	}
	text := fmt.Sprintf("대기 중인 작업: %d", status.Pending)
	for _, task := range status.Recent {
		text += fmt.Sprintf("\n%s %s %s", task.CreatedAt.Format("2006-01-02 15:04"), task.Platform, task.URL)
	}
	return text
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"github.com/maxaizer/scout-pipeline/internal/services"
	"github.com/samber/lo"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	positionCommandName       = "position"
	scoutURLCommandName       = "scout_url"
	jobDescriptionCommandName = "jd"
	refineCommandName         = "refine"
	editKeywordsCommandName   = "edit_keywords"
	editQueryCommandName      = "edit_query"
	selectCommandName         = "select"
	messageCommandName        = "message"
	saveTemplateCommandName   = "save_template"
)

const skipInput = "-"

var errUnknownCommand = errors.New("unknown command")

var keywordStepLabels = map[string]entities.StepName{
	"추출 키워드": entities.StepKeywordExtraction,
	"정제 키워드": entities.StepKeywordRefinement,
	"통합 키워드": entities.StepKeywordCombination,
}

var templateStepLabels = map[string]entities.StepName{
	"키워드 추출": entities.StepKeywordExtraction,
	"키워드 정제": entities.StepKeywordRefinement,
	"키워드 통합": entities.StepKeywordCombination,
	"SQL 생성":  entities.StepSqlGeneration,
}

func sortedLabels(labels map[string]entities.StepName) []string {
	keys := lo.Keys(labels)
	slices.Sort(keys)
	return keys
}

const (
	yesOption = "예"
	noOption  = "아니오"
)

func (b *Bot) createCommand(name string, session *userContext, args string) (command, error) {

	switch name {
	case positionCommandName:
		return b.newPositionCommand(session, args)
	case scoutURLCommandName:
		return b.newScoutURLCommand(session)
	case jobDescriptionCommandName:
		return b.newJobDescriptionCommand(session), nil
	case refineCommandName:
		return b.newRefineCommand(session), nil
	case editKeywordsCommandName:
		return b.newEditKeywordsCommand(session), nil
	case editQueryCommandName:
		return b.newEditQueryCommand(session), nil
	case selectCommandName:
		return newSelectionCommand(b.api, session, b.services.Selection)
	case messageCommandName:
		return b.newMessageCommand(session), nil
	case saveTemplateCommandName:
		return b.newSaveTemplateCommand(session), nil
	default:
		return nil, fmt.Errorf("%w: %v", errUnknownCommand, name)
	}
}

func (b *Bot) newPositionCommand(session *userContext, search string) (command, error) {

	cmd := newStepsCommand(b.api, session.chatID, func(values map[string]string) string {
		id, _ := strconv.Atoi(values["position"])
		ctx := context.Background()

		next, err := b.services.Positions.SelectPosition(ctx, session.pipeline, id)
		if err != nil {
			return errorText(err)
		}
		session.pipeline = next

		details, err := b.services.Positions.Details(ctx, id)
		if err != nil {
			return errorText(err)
		}
		text := "포지션이 선택되었습니다.\n" + formatDetails(details)
		if next.JobDescription != "" {
			text += "\n\n이전 Job Description을 불러왔습니다. /jd 로 변경할 수 있습니다."
		}
		return text
	})

	input, err := newPositionInput(session.chatID, b.services.Positions, search, func(position entities.Position) {
		cmd.values["position"] = strconv.Itoa(position.ID)
		cmd.curHandlerIndex++
	})
	if err != nil {
		return nil, err
	}
	cmd.inputHandlers = append(cmd.inputHandlers, input)
	return cmd, nil
}

func (b *Bot) newScoutURLCommand(session *userContext) (command, error) {
	if session.pipeline.PositionID == 0 {
		return nil, services.ErrNoPosition
	}

	cmd := newStepsCommand(b.api, session.chatID, func(values map[string]string) string {
		err := b.services.Positions.UpdateScoutURL(context.Background(), session.pipeline.PositionID, values["url"])
		if err != nil {
			return errorText(err)
		}
		return "스카우트 URL이 저장되었습니다."
	})
	cmd.textStep("url", "응답 확인에 사용할 스카우트 페이지 URL을 입력해 주세요.",
		nonEmpty("URL을 입력해 주세요."))
	return cmd, nil
}

func (b *Bot) newJobDescriptionCommand(session *userContext) command {

	cmd := newStepsCommand(b.api, session.chatID, func(values map[string]string) string {
		if session.pipeline.PositionID == 0 {
			return errorText(services.ErrNoPosition)
		}
		info := values["info"]
		if info == skipInput {
			info = ""
		}
		session.pipeline = session.pipeline.WithJobDescription(strings.TrimSpace(values["jd"]), info)
		return "Job Description이 저장되었습니다. /extract 로 키워드를 추출하세요."
	})
	cmd.textStep("jd", "Job Description을 입력해 주세요.", nonEmpty("Job Description이 비어 있습니다."))
	cmd.textStep("info", "추가 정보를 입력해 주세요. 없으면 \"-\"를 입력하세요.")
	return cmd
}

func (b *Bot) newRefineCommand(session *userContext) command {

	cmd := newStepsCommand(b.api, session.chatID, func(values map[string]string) string {
		next, err := b.services.Keywords.Refine(context.Background(), session.pipeline, values["job_type"])
		if err != nil {
			return errorText(err)
		}
		session.pipeline = next
		return formatKeywords("정제 키워드", next.Refined) + "\n\n/combine 으로 키워드를 통합하세요."
	})
	input := cmd.textStep("job_type", "직무 유형을 입력해 주세요. 예: 백엔드", nonEmpty("직무 유형을 입력해야 합니다."))
	if session.pipeline.JobType != "" {
		input.initMessage += "\n이전 입력: " + session.pipeline.JobType
	}
	return cmd
}

func (b *Bot) newEditKeywordsCommand(session *userContext) command {

	cmd := newStepsCommand(b.api, session.chatID, func(values map[string]string) string {
		step := keywordStepLabels[values["step"]]
		text := values["keywords"]
		if text == skipInput {
			text = ""
		}
		next, err := b.services.Keywords.Override(session.pipeline, step, text)
		if err != nil {
			return errorText(err)
		}
		session.pipeline = next
		return strings.Join([]string{
			formatKeywords("추출 키워드", next.Extracted),
			formatKeywords("정제 키워드", next.Refined),
			formatKeywords("통합 키워드", next.Combined),
		}, "\n")
	})
	cmd.choiceStep("step", "수정할 키워드를 선택해 주세요.", sortedLabels(keywordStepLabels))
	cmd.textStep("keywords", "쉼표로 구분된 키워드를 입력해 주세요. 비우려면 \"-\"를 입력하세요.",
		nonEmpty("키워드를 입력해 주세요."))
	return cmd
}

func (b *Bot) newEditQueryCommand(session *userContext) command {

	cmd := newStepsCommand(b.api, session.chatID, func(values map[string]string) string {
		session.pipeline = session.pipeline.EditQuery(values["query"])
		return "쿼리가 수정되었습니다. /execute 로 실행하세요."
	})
	cmd.textStep("query", "실행할 SQL을 입력해 주세요.", nonEmpty("SQL을 입력해 주세요."))
	return cmd
}

func (b *Bot) newMessageCommand(session *userContext) command {

	cmd := newStepsCommand(b.api, session.chatID, func(values map[string]string) string {
		days, _ := strconv.Atoi(values["days"])
		validUntil := time.Now().AddDate(0, 0, days)

		next, err := b.services.Outreach.ComposeMessage(context.Background(), session.pipeline,
			values["title"], values["content"], validUntil)
		if err != nil {
			return errorText(err)
		}
		session.pipeline = next
		return fmt.Sprintf("메시지가 저장되었습니다 (유효기간 %s). /send 로 발송하세요.",
			next.Message.ValidUntil.Format("2006-01-02"))
	})
	cmd.textStep("title", "스카우트 메시지 제목을 입력해 주세요.", nonEmpty("제목을 입력해 주세요."))
	cmd.textStep("content", "스카우트 메시지 본문을 입력해 주세요.", nonEmpty("본문을 입력해 주세요."))
	cmd.textStep("days", "유효기간(일)을 입력해 주세요 (0에서 30).", validation{
		function: func(input string) bool {
			days, err := strconv.Atoi(input)
			return err == nil && days >= 0 && days <= 30
		},
		errorMessage: "0에서 30 사이의 숫자를 입력해 주세요.",
	})
	return cmd
}

func (b *Bot) newSaveTemplateCommand(session *userContext) command {

	cmd := newStepsCommand(b.api, session.chatID, func(values map[string]string) string {
		step := templateStepLabels[values["step"]]
		id, err := b.services.Templates.Save(context.Background(), step, values["name"], values["body"],
			values["default"] == yesOption)
		if err != nil {
			return errorText(err)
		}
		return fmt.Sprintf("템플릿 #%d이 저장되었습니다.", id)
	})
	cmd.choiceStep("step", "템플릿 단계를 선택해 주세요.", sortedLabels(templateStepLabels))
	cmd.textStep("name", "템플릿 이름을 입력해 주세요.", nonEmpty("이름을 입력해 주세요."))
	cmd.textStep("body", "템플릿 본문을 입력해 주세요. {job_description} 같은 플레이스홀더를 사용할 수 있습니다.",
		nonEmpty("본문을 입력해 주세요."))
	cmd.choiceStep("default", "기본 템플릿으로 지정할까요?", []string{yesOption, noOption})
	return cmd
}

package prompts

import "github.com/maxaizer/scout-pipeline/internal/entities"

const (
	RecruiterInstruction = "You are a helpful HR recruiter. Answer in Korean."
	SqlInstruction       = "You are a helpful SQL expert. Answer with SQL query only, without ```sql or ``` tags."
)

func SystemInstruction(step entities.StepName) string {
	if step == entities.StepSqlGeneration {
		return SqlInstruction
	}
	return RecruiterInstruction
}

var defaultBodies = map[entities.StepName]string{
	entities.StepKeywordExtraction: "주어진 Job Description에서 업무경험, 스킬, 도구사용에 대해 1개 또는 2개의 단어로 구성된 " +
		"핵심 키워드 최대 10개를 산출해주는데 단어간에 띄어쓰기를 하지 말아줘. 키워드만 쉼표로 구분해서 답해줘: {job_description}",
	entities.StepKeywordRefinement: "주어진 직무에 대해 레쥬메 서치를 위한 1개 또는 2개의 단어로 구성된 핵심 키워드 5개를 " +
		"산출해주는데 단어간에 띄어쓰기를 하지 말아줘. 키워드만 쉼표로 구분해서 답해줘: {job_type}",
	entities.StepKeywordCombination: "주어진 내용에 중복을 제거하고 중간단계 없이 최종결과만 최대 20개 키워드를 쉼표로 구분해서 산출해줘:\n" +
		"{extracted_keywords} {refined_keywords}",
	entities.StepSqlGeneration: `create table candidates
(
    source_key                text primary key,
    name                      text,
    career_status             text,
    birth_year                text,
    location                  text,
    desired_annual_salary     text,
    my_skills                 text,
    work_experience           text,
    career_technical_details  text,
    academic_background       text,
    desired_job               text,
    keywords                  text,
    desired_work_region       text,
    work_year                 text,
    login_dt                  text,
    brief_introduction        text,
    certificates_awards       text,
    resume_update_dt          text,
    page_url                  text
);

text 컬럼을 키워드와 비교할때는 대소문자를 구분하지 않도록 LOWER(컬럼) LIKE LOWER('%키워드%') 형태로 앞뒤로 %를 붙여서 비교한다. ILIKE는 사용하지 않는다.
{job_description}에 경력 년수에 대한 요건이 있는 경우 해당기간에 대한 값들을 work_year와 LIKE 문장을 이용하고 앞에는 %, 뒤에는 년%를 붙여서 비교하고 해당 문장들을 ()로 묶어준다.
지역에 대한 언급이 있는 경우 desired_work_region 또는 location과 지역을 LOWER(컬럼) LIKE LOWER(...) 문장을 이용해서 앞뒤로 %를 붙여서 비교하고 해당 문장들을 ()로 묶어준다.
키워드와 비교할 컬럼들은 my_skills, desired_job, keywords, work_experience 들이야.
키워드: {keywords}
sql 문장을 생성할때는 source_key, birth_year, location, desired_annual_salary, desired_job, login_dt가 표시하도록 한다.
추가로 키워드가 몇개 일치하는지를 keyword_match_count 컬럼으로 표시해줘.
order는 키워드가 많이 일치하는 순서, 연봉수준이 비슷한것 우선, login_dt가 최근인것 우선으로 표시하고 상위 20명을 표시하도록 해줘.`,
}

// Default returns the built-in template used when the store has none for the step.
func Default(step entities.StepName) (entities.PromptTemplate, bool) {
	body, ok := defaultBodies[step]
	if !ok {
		return entities.PromptTemplate{}, false
	}
	return entities.PromptTemplate{StepName: step, Name: "built-in", Body: body, IsDefault: true}, true
}

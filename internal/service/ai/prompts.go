package ai

import (
	"fmt"
	"strings"

	"filesorter/internal/models"
)

const summaryPrompt = `당신은 다양한 파일을 분석하고 요약하는 전문가입니다.
사용자의 파일을 자동 분류하기 위해, 문서의 내용을 한눈에 파악하여 분류할 수 있도록 요약을 생성하는 역할을 맡고 있습니다.
파일 당 요약은 최대 2문장을 사용하세요.
문장마다 마침표(.)는 한 번만 찍고, 총 두 개의 문장으로 끝내야 합니다.

파일을 반드시 열어서 내용을 끝까지 확인한 뒤 요약을 진행하세요.
개별 요소를 따로 요약하는 게 아니라 파일 전체가 어떤 맥락이나 상황을 나타내고 있는지에 대해서 요약하세요.

[예시 출력 포맷]
[입력] 음식점들에 대한 이름, 위치, 전화번호, 주소, 영업시간 등 정보를 담고 있는 문서.
[출력] 음식점에 대한 정보를 담고 있는 문서입니다. 이름, 위치, 전화번호, 주소, 영업시간 등의 정보를 포함하고 있습니다.

첨부된 파일을 읽고 해당 파일을 간결하게 요약하세요.`

const classificationSystemPrompt = "당신은 파일 정리 전문가입니다."

// ClassificationTemplate steers the shape of the classifier's JSON output.
// Kept as text so the key order shown to the model is stable.
const ClassificationTemplate = `{
  "강의": {
    "{과목명1}": {
      "강의자료": ["강의자료.pdf"],
      "과제": ["과제.pdf"]
    },
    "{과목명2}": {
      "강의자료": ["강의자료1.pdf", "강의자료2.pdf"],
      "과제": ["과제.pdf"]
    }
  },
  "프로젝트": {
    "{프로젝트A}": {
      "기획": ["브레인스토밍.txt", "기획_요약.pdf"],
      "디자인": ["와이어프레임.png"],
      "개발": {
        "frontend": [],
        "backend": []
      },
      "결과물": ["테스트_리포트.pdf", "발표자료.pptx"]
    },
    "{프로젝트B}": {
      "요구사항명세서.docx": [],
      "코드": ["module1.js", "module2.js"]
    }
  },
  "포트폴리오": {
    "{포트폴리오A}": {
      "{공모전명1}": ["제안서.docx", "시연영상.mp4"],
      "{공모전명2}": ["수상증명서.pdf"]
    },
    "{대외활동A}": {
      "{회사명}": ["업무보고서.docx", "인터뷰_영상.mov"]
    },
    "{동아리A}": {
      "{동아리명1}_연간보고.xlsx": [],
      "{동아리명2}_포스터.jpg": []
    }
  },
  "일상": {
    "사진": []
  },
  "기타_자료": ["{증빙서류}", "{참고문헌}", "{스크랩파일}"]
}`

var topLevelKeys = []string{
	models.SectionLecture,
	models.SectionProject,
	models.SectionPortfolio,
	models.SectionDaily,
	models.SectionMisc,
}

// BuildClassificationPrompt embeds one "- <summary>" line per file and the
// taxonomy template into the classification request.
func BuildClassificationPrompt(summaries []models.Summary) string {
	lines := make([]string, 0, len(summaries))
	for _, s := range summaries {
		lines = append(lines, "- "+s.Summary)
	}

	var b strings.Builder
	b.WriteString("아래는 사용자가 업로드한 파일들의 요약문 목록입니다.\n")
	b.WriteString("각 파일이 어떤 종류의 자료인지 판단하여, 아래의 분류 템플릿(JSON 구조)에 맞추어 파일명을 분류해 주세요.\n\n")
	b.WriteString("요약문 목록:\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n분류 템플릿 예시 (JSON):\n")
	b.WriteString(ClassificationTemplate)
	fmt.Fprintf(&b, "\n\n출력은 반드시 JSON 형식으로, 상위 키(%s)를 유지한 채로 반환해 주세요.\n", strings.Join(topLevelKeys, ", "))
	b.WriteString("마크다운 코드 블럭 없이 순수한 json 내용만 반환해 주세요.\n\n")
	b.WriteString("(※다시 강조: 출력 시 ```json 또는 ``` 같은 마크다운 기호를 일체 사용하지 말고,\n")
	b.WriteString("첫 글자부터 '{' 로 시작해서 '}' 로 끝나는 유효한 JSON만 내보내주세요.)\n")
	return b.String()
}

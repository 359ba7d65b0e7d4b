package models

// Top-level taxonomy sections the classifier is asked to fill.
const (
	SectionLecture   = "강의"
	SectionProject   = "프로젝트"
	SectionPortfolio = "포트폴리오"
	SectionDaily     = "일상"
	SectionMisc      = "기타_자료"
)

// Fixed keys inside sections.
const (
	LectureMaterials = "강의자료"
	LectureHomework  = "과제"
	ProjectDev       = "개발"
)

// ClassificationSpec holds the classifier's JSON object verbatim, so key order
// chosen by the model survives into the response and the rendered outline.
type ClassificationSpec []byte

func (s ClassificationSpec) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("{}"), nil
	}
	return []byte(s), nil
}

func (s *ClassificationSpec) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}
	*s = append((*s)[:0], data...)
	return nil
}

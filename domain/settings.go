package domain

type Settings struct {
	AcademicYear string              `json:"academic_year"`
	Semester     string              `json:"semester"`
	Events       []CalendarException `json:"events"`
	Classes      []SchoolClass       `json:"classes,omitempty"`
	SubjectNames map[string]string   `json:"subject_names,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		AcademicYear: "2025/2026",
		Semester:     "Genap",
		Events:       []CalendarException{},
	}
}

func (s Settings) Clone() Settings {
	out := s
	out.Events = make([]CalendarException, 0, len(s.Events))
	for _, e := range s.Events {
		out.Events = append(out.Events, e.Clone())
	}
	out.Classes = append([]SchoolClass(nil), s.Classes...)
	if s.SubjectNames != nil {
		out.SubjectNames = make(map[string]string, len(s.SubjectNames))
		for k, v := range s.SubjectNames {
			out.SubjectNames[k] = v
		}
	}
	return out
}

func (s Settings) Validate() error {
	for _, e := range s.Events {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}

package measure

// Standard instruments shipped with the engine. Question texts follow the
// published PHQ-9 and GAD-7 wording; all items score 0-3.

const phqPrompt = "Over the last 2 weeks, how often have you been bothered by: "

func item(text string) Question {
	return Question{Text: text, Min: 0, Max: 3}
}

// PHQ9 is the 9-item depression screening instrument.
func PHQ9() *Measure {
	return &Measure{
		Name:  "PHQ-9",
		Title: "Patient Health Questionnaire (PHQ-9)",
		Questions: []Question{
			item(phqPrompt + "Little interest or pleasure in doing things"),
			item(phqPrompt + "Feeling down, depressed, or hopeless"),
			item(phqPrompt + "Trouble falling or staying asleep, or sleeping too much"),
			item(phqPrompt + "Feeling tired or having little energy"),
			item(phqPrompt + "Poor appetite or overeating"),
			item(phqPrompt + "Feeling bad about yourself"),
			item(phqPrompt + "Trouble concentrating on things"),
			item(phqPrompt + "Moving or speaking slowly, or being fidgety or restless"),
			item(phqPrompt + "Thoughts that you would be better off dead or of hurting yourself"),
		},
		Bands: []SeverityBand{
			{Min: 0, Max: 4, Label: "minimal"},
			{Min: 5, Max: 9, Label: "mild"},
			{Min: 10, Max: 14, Label: "moderate"},
			{Min: 15, Max: 19, Label: "moderately severe"},
			{Min: 20, Max: 27, Label: "severe"},
		},
	}
}

// GAD7 is the 7-item anxiety screening instrument.
func GAD7() *Measure {
	return &Measure{
		Name:  "GAD-7",
		Title: "Generalized Anxiety Disorder scale (GAD-7)",
		Questions: []Question{
			item(phqPrompt + "Feeling nervous, anxious, or on edge"),
			item(phqPrompt + "Not being able to stop or control worrying"),
			item(phqPrompt + "Worrying too much about different things"),
			item(phqPrompt + "Trouble relaxing"),
			item(phqPrompt + "Being so restless that it is hard to sit still"),
			item(phqPrompt + "Becoming easily annoyed or irritable"),
			item(phqPrompt + "Feeling afraid as if something awful might happen"),
		},
		Bands: []SeverityBand{
			{Min: 0, Max: 4, Label: "minimal"},
			{Min: 5, Max: 9, Label: "mild"},
			{Min: 10, Max: 14, Label: "moderate"},
			{Min: 15, Max: 21, Label: "severe"},
		},
	}
}

// DefaultRegistry returns the registry with the built-in instruments.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(PHQ9(), GAD7())
	if err != nil {
		// Built-in definitions are validated by tests; a failure here is a
		// programming error.
		panic(err)
	}
	return r
}

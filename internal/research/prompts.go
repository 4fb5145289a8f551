package research

import (
	"fmt"
	"strings"
)

func researchPrompt(question, feedback string) string {
	var b strings.Builder
	b.WriteString("You are a professional research agent.\n\n")
	b.WriteString("Role:\n")
	b.WriteString("- Perform in-depth, comprehensive research on the given question.\n")
	b.WriteString("- Include reliable sources and diverse perspectives.\n")
	b.WriteString("- Present concrete examples and data.\n\n")
	b.WriteString("When feedback is provided:\n")
	b.WriteString("- Analyze the feedback and improve the weak parts.\n")
	b.WriteString("- Add more detailed information or new perspectives.\n\n")
	b.WriteString("Research format:\n")
	b.WriteString("1. Definition of core concepts\n")
	b.WriteString("2. Main points (at least 3-5)\n")
	b.WriteString("3. Concrete examples or data\n")
	b.WriteString("4. Different perspectives or counterarguments\n")
	b.WriteString("5. Conclusion and implications\n\n")
	b.WriteString("Question: ")
	b.WriteString(question)
	if feedback != "" {
		b.WriteString("\n\nFeedback on the previous research:\n")
		b.WriteString(feedback)
		b.WriteString("\nRevise the research according to the feedback above.")
	}
	return b.String()
}

func evaluationPrompt(question, artifact string, threshold float64) string {
	var b strings.Builder
	b.WriteString("You are an expert evaluator of research quality.\n\n")
	b.WriteString("Evaluation criteria:\n")
	for i, c := range criteria {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	b.WriteString("\nRespond with JSON only, in this format:\n")
	b.WriteString("{\n")
	b.WriteString(`    "score": score (1-10),` + "\n")
	b.WriteString(`    "is_sufficient": true/false,` + "\n")
	b.WriteString(`    "feedback": "specific feedback",` + "\n")
	b.WriteString(`    "strong_points": ["strength 1", "strength 2"],` + "\n")
	b.WriteString(`    "improvement_areas": ["improvement 1", "improvement 2"]` + "\n")
	b.WriteString("}\n\n")
	fmt.Fprintf(&b, "Sufficient quality: a score of %g or higher\n\n", threshold)
	b.WriteString("Original question: ")
	b.WriteString(question)
	b.WriteString("\nResearch result: ")
	b.WriteString(artifact)
	return b.String()
}

var criteria = []string{
	"Completeness (breadth of information)",
	"Accuracy (reliability of information)",
	"Depth (depth of analysis)",
	"Structure (logical organization)",
	"Practicality (usefulness)",
}

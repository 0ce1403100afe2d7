package insight

import "time"

// SectionType identifies the kind of content a PremiumSection carries.
// The set is closed; generation calls are instructed to use these values only.
type SectionType string

const (
	TypeQuickGlance           SectionType = "quickGlance"
	TypeFoundationalNarrative SectionType = "foundationalNarrative"
	TypeExecutiveSummary      SectionType = "executiveSummary"
	TypeConceptExplanation    SectionType = "conceptExplanation"
	TypePracticalExample      SectionType = "practicalExample"
	TypeInsightAtlasNote      SectionType = "insightAtlasNote"
	TypeVisualFramework       SectionType = "visualFramework"
	TypeActionBox             SectionType = "actionBox"
	TypeSelfAssessment        SectionType = "selfAssessment"
	TypeTrackingTemplate      SectionType = "trackingTemplate"
	TypeDialogueScript        SectionType = "dialogueScript"
	TypeReflectionPrompts     SectionType = "reflectionPrompts"
	TypeScenarioResponse      SectionType = "scenarioResponse"
	TypeStructureMap          SectionType = "structureMap"
	TypeKeyTakeaways          SectionType = "keyTakeaways"
	TypeChapterBreakdown      SectionType = "chapterBreakdown"
)

var sectionTypes = map[SectionType]bool{
	TypeQuickGlance:           true,
	TypeFoundationalNarrative: true,
	TypeExecutiveSummary:      true,
	TypeConceptExplanation:    true,
	TypePracticalExample:      true,
	TypeInsightAtlasNote:      true,
	TypeVisualFramework:       true,
	TypeActionBox:             true,
	TypeSelfAssessment:        true,
	TypeTrackingTemplate:      true,
	TypeDialogueScript:        true,
	TypeReflectionPrompts:     true,
	TypeScenarioResponse:      true,
	TypeStructureMap:          true,
	TypeKeyTakeaways:          true,
	TypeChapterBreakdown:      true,
}

func (t SectionType) Valid() bool {
	return sectionTypes[t]
}

// VisualType names the recommended visual representation for a concept
// or visualFramework section.
type VisualType string

const (
	VisualFlowDiagram     VisualType = "flowDiagram"
	VisualRadarChart      VisualType = "radarChart"
	VisualBarChart        VisualType = "barChart"
	VisualPyramid         VisualType = "pyramidDiagram"
	VisualMatrixGrid      VisualType = "matrixGrid"
	VisualTimeline        VisualType = "timelineSequence"
	VisualMindMap         VisualType = "mindMap"
	VisualVennDiagram     VisualType = "vennDiagram"
	VisualCycleDiagram    VisualType = "cycleDiagram"
	VisualQuadrantChart   VisualType = "quadrantChart"
	VisualComparisonTable VisualType = "comparisonTable"
	VisualIceberg         VisualType = "icebergModel"
	VisualFunnel          VisualType = "funnelDiagram"
	VisualLadder          VisualType = "ladderDiagram"
	VisualSpectrum        VisualType = "spectrumScale"
	VisualFeedbackLoop    VisualType = "feedbackLoop"
	VisualTreeDiagram     VisualType = "treeDiagram"
	VisualStackedBlocks   VisualType = "stackedBlocks"
	VisualBridgeDiagram   VisualType = "bridgeDiagram"
	VisualJourneyMap      VisualType = "journeyMap"
	VisualPathway         VisualType = "pathwaySteps"
	VisualWebDiagram      VisualType = "webDiagram"
	VisualBalanceScale    VisualType = "balanceScale"
	VisualGearSystem      VisualType = "gearSystem"
	VisualThermometer     VisualType = "thermometerGauge"
	VisualCompass         VisualType = "compassRose"
	VisualBuildingBlocks  VisualType = "buildingBlocks"
	VisualEcosystemMap    VisualType = "ecosystemMap"
	VisualOrbitDiagram    VisualType = "orbitDiagram"
	VisualHeatmap         VisualType = "heatmapGrid"
)

var visualTypes = map[VisualType]bool{
	VisualFlowDiagram: true, VisualRadarChart: true, VisualBarChart: true,
	VisualPyramid: true, VisualMatrixGrid: true, VisualTimeline: true,
	VisualMindMap: true, VisualVennDiagram: true, VisualCycleDiagram: true,
	VisualQuadrantChart: true, VisualComparisonTable: true, VisualIceberg: true,
	VisualFunnel: true, VisualLadder: true, VisualSpectrum: true,
	VisualFeedbackLoop: true, VisualTreeDiagram: true, VisualStackedBlocks: true,
	VisualBridgeDiagram: true, VisualJourneyMap: true, VisualPathway: true,
	VisualWebDiagram: true, VisualBalanceScale: true, VisualGearSystem: true,
	VisualThermometer: true, VisualCompass: true, VisualBuildingBlocks: true,
	VisualEcosystemMap: true, VisualOrbitDiagram: true, VisualHeatmap: true,
}

func (v VisualType) Valid() bool {
	return visualTypes[v]
}

// CoerceVisualType maps any out-of-enumeration value to a safe default.
func CoerceVisualType(v VisualType) VisualType {
	if v.Valid() {
		return v
	}
	return VisualFlowDiagram
}

// CoreConcept is a major idea extracted from the source book, mapped
// to one recommended visual representation.
type CoreConcept struct {
	Name              string     `json:"name"`
	SourceChapter     string     `json:"source_chapter"`
	Description       string     `json:"description"`
	RecommendedVisual VisualType `json:"recommended_visual"`
	VisualRationale   string     `json:"visual_rationale"`
	ExampleDomains    []string   `json:"example_domains"`
}

// Classification captures how the analyzer categorizes the book.
type Classification struct {
	PrimaryCategory   string `json:"primary_category"`
	SecondaryCategory string `json:"secondary_category"`
	ComplexityLevel   string `json:"complexity_level"`
	FrameworkType     string `json:"framework_type"`
}

// Recommendations steer later generation stages.
type Recommendations struct {
	EmphasisAreas []string `json:"emphasis_areas"`
	Challenges    []string `json:"challenges"`
	Opportunities []string `json:"opportunities"`
}

// BookAnalysis is the output of the analysis stage. Created once per run
// and consumed read-only by every later stage.
type BookAnalysis struct {
	Classification   Classification  `json:"classification"`
	OriginStory      string          `json:"origin_story,omitempty"`
	StructureSummary string          `json:"structure_summary"`
	CoreConcepts     []CoreConcept   `json:"core_concepts"`
	Psychological    []string        `json:"psychological_frameworks,omitempty"`
	Philosophical    []string        `json:"philosophical_traditions,omitempty"`
	ToneAnalysis     string          `json:"tone_analysis,omitempty"`
	Recommendations  Recommendations `json:"recommendations"`
}

// SectionMetadata holds the typed extras a section may carry. Fields the
// generation call invents beyond these land in PremiumSection.Metadata.
type SectionMetadata struct {
	ActionSteps          []string `json:"action_steps,omitempty"`
	KeyDistinction       string   `json:"key_distinction,omitempty"`
	PracticalImplication string   `json:"practical_implication,omitempty"`
	GoDeeper             string   `json:"go_deeper,omitempty"`
}

// PremiumSection is the atomic content unit of a guide. Sections are
// ordered; insertion order is the document order.
type PremiumSection struct {
	ID         string          `json:"id"`
	Type       SectionType     `json:"type"`
	Title      string          `json:"title"`
	Content    string          `json:"content"`
	VisualType VisualType      `json:"visual_type,omitempty"`
	VisualData map[string]any  `json:"visual_data,omitempty"`
	Meta       SectionMetadata `json:"meta,omitempty"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
}

// TOCEntry is one row of the derived table of contents.
type TOCEntry struct {
	ID    string      `json:"id"`
	Title string      `json:"title"`
	Type  SectionType `json:"type"`
}

// PremiumGuide aggregates the ordered section list with its derived data.
type PremiumGuide struct {
	Title       string           `json:"title"`
	BookTitle   string           `json:"book_title"`
	BookAuthor  string           `json:"book_author,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
	WordCount   int              `json:"word_count"`
	Sections    []PremiumSection `json:"sections"`
	TOC         []TOCEntry       `json:"toc"`
}

// GapAnalysisResult is the transient output of the completeness check.
type GapAnalysisResult struct {
	MissingDimensions []string         `json:"missing_dimensions"`
	CompletenessScore int              `json:"completeness_score"`
	NewSections       []PremiumSection `json:"new_sections"`
}

// GeneratedInsight is the final aggregate handed to the caller for
// persistence. The pipeline holds no durable state beyond it.
type GeneratedInsight struct {
	ID                 string           `json:"id"`
	Title              string           `json:"title"`
	Summary            string           `json:"summary"`
	KeyThemes          []string         `json:"key_themes"`
	Sections           []PremiumSection `json:"sections"`
	TOC                []TOCEntry       `json:"toc"`
	AudioScript        string           `json:"audio_script"`
	AudioURL           string           `json:"audio_url,omitempty"`
	AudioDurationSecs  int              `json:"audio_duration_secs,omitempty"`
	WordCount          int              `json:"word_count"`
	Analysis           BookAnalysis     `json:"analysis"`
	GapAnalysisApplied bool             `json:"gap_analysis_applied"`
	CompletenessScore  int              `json:"completeness_score"`
	GeneratedAt        time.Time        `json:"generated_at"`
}

// Status values for a pipeline run as seen by progress subscribers.
type Status string

const (
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ProgressUpdate is the ephemeral percent/step tuple broadcast during a run.
type ProgressUpdate struct {
	InsightID    string `json:"insightId"`
	Status       Status `json:"status"`
	Percent      int    `json:"percent"`
	CurrentStep  string `json:"currentStep"`
	SectionCount int    `json:"sectionCount,omitempty"`
	WordCount    int    `json:"wordCount,omitempty"`
	Error        string `json:"error,omitempty"`
}

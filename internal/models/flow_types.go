// Package models defines flow type definitions to avoid circular imports.
package models

// FlowType identifies one of the guided logging wizards.
type FlowType string

// Step identifies a position within a flow's step sequence.
type Step string

// Container is the target table a logged record belongs to.
type Container string

// Flow type constants.
const (
	FlowFood     FlowType = "food"
	FlowSleep    FlowType = "sleep"
	FlowExercise FlowType = "exercise"
)

// Container constants. Flow types map one-to-one onto containers; the extra
// values exist for the free-text fallback path.
const (
	ContainerFood     Container = "food"
	ContainerSleep    Container = "sleep"
	ContainerExercise Container = "exercise"
	ContainerUnknown  Container = "unknown"
	ContainerIgnore   Container = "ignore"
)

// ValidContainers lists the containers that may be persisted to domain tables.
var ValidContainers = map[Container]bool{
	ContainerFood:     true,
	ContainerSleep:    true,
	ContainerExercise: true,
}

// StepPreview is the terminal pre-confirmation step shared by all flows.
const StepPreview Step = "preview"

// Food flow steps.
const (
	StepFoodMealType    Step = "choose_meal_type"
	StepFoodDescription Step = "await_description"
	StepFoodMacroChoice Step = "ask_macros_choice"
	StepFoodCalories    Step = "await_calories"
	StepFoodProtein     Step = "await_protein"
	StepFoodCarbs       Step = "await_carbs"
	StepFoodFat         Step = "await_fat"
	StepFoodFiber       Step = "await_fiber"
	StepFoodNotesChoice Step = "ask_notes_choice"
	StepFoodNotes       Step = "await_notes"
)

// Sleep flow steps.
const (
	StepSleepQuality   Step = "ask_quality"
	StepSleepDuration  Step = "ask_duration"
	StepSleepEnergy    Step = "ask_energy"
	StepSleepStart     Step = "ask_sleep_start"
	StepSleepEnd       Step = "ask_sleep_end"
	StepSleepRestingHR Step = "ask_resting_hr"
	StepSleepNotes     Step = "ask_notes"
)

// Exercise flow steps.
const (
	StepExerciseType      Step = "ask_type"
	StepExerciseDuration  Step = "ask_ex_duration"
	StepExerciseDistance  Step = "ask_distance"
	StepExerciseCalories  Step = "ask_ex_calories"
	StepExerciseAvgHR     Step = "ask_avg_hr"
	StepExerciseMaxHR     Step = "ask_max_hr"
	StepExerciseIntensity Step = "ask_intensity"
	StepExerciseTags      Step = "ask_tags"
	StepExerciseNotes     Step = "ask_ex_notes"
)

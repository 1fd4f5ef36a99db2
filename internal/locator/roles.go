package locator

import (
	"regexp"
	"slices"
	"strings"

	"tb-storyboard/internal/entity"
)

type Role string

const (
	RoleModeSelector        Role = "mode_selector"
	RoleModeOption          Role = "mode_option"
	RoleClearTimeline       Role = "clear_timeline"
	RoleConfirmDialog       Role = "confirm_dialog"
	RoleSettingsButton      Role = "settings_button"
	RoleOutputsSelector     Role = "outputs_selector"
	RoleOutputsOption       Role = "outputs_option"
	RoleAddImage            Role = "add_image"
	RoleFileInput           Role = "file_input"
	RoleAspectRatioSelector Role = "aspect_ratio_selector"
	RoleAspectRatioOption   Role = "aspect_ratio_option"
	RoleCropAndSave         Role = "crop_and_save"
	RolePromptInput         Role = "prompt_input"
	RoleGenerateButton      Role = "generate_button"
	RoleTimelineClip        Role = "timeline_clip"
	RoleExtendButton        Role = "extend_button"
	RoleExtendIndicator     Role = "extend_indicator"
	RoleReadyMarker         Role = "ready_marker"
	RoleDurationReadout     Role = "duration_readout"
	RoleDownloadButton      Role = "download_button"
	RoleQualityOption       Role = "quality_option"
	RoleDismiss             Role = "dismiss"
)

// Strategy is one way of recognising a role. Selectors bound the snapshot,
// Match decides per element, and Reduce (optional) collapses or reorders
// the matches before one is picked by index.
type Strategy struct {
	Name      string
	Selectors []string
	Match     Predicate
	Reduce    func(matches []entity.Element) []entity.Element
}

// Geometry thresholds (CSS px) observed on the host page's default 1920x1080
// layout: the prompt bar and timeline are docked below these offsets.
const (
	bottomDockTop   = 600
	timelineTop     = 450
	promptAreaTop   = 500
	modeMinWidth    = 100
	modeMaxWidth    = 300
	promptMinWidth  = 200
	clipMinWidth    = 40
	clipMaxWidth    = 400
	clipColumnSlack = 4
	chipMaxRunes    = 40
)

var (
	modeLabels   = modeTexts()
	durationText = regexp.MustCompile(`^\d{1,2}:\d{2}(\s*/\s*\d{1,2}:\d{2})?$`)
)

func modeTexts() []string {
	labels := make([]string, 0, len(entity.Modes))
	for _, m := range entity.Modes {
		labels = append(labels, string(m))
	}

	return labels
}

// roles lists the strategies for every role in fallback order.
var roles = map[Role][]Strategy{
	RoleModeSelector: {
		{
			Name:      "bottom_docked_mode_label",
			Selectors: []string{"div", "button", "span"},
			Match:     all(topAbove(bottomDockTop), widthBetween(modeMinWidth, modeMaxWidth), textContains(modeLabels...)),
		},
		{
			Name:      "combobox_mode_label",
			Selectors: []string{"[role=combobox]"},
			Match:     all(ariaRole("combobox"), textContains(modeLabels...)),
		},
	},
	RoleModeOption: {
		{
			Name:      "exact_label",
			Selectors: []string{"div", "span", "li", "[role=option]"},
			Match:     queryTextEquals(),
		},
		{
			Name:      "option_containing_label",
			Selectors: []string{"[role=option]", "[role=menuitem]"},
			Match:     all(anyOf(ariaRole("option"), ariaRole("menuitem")), queryTextContains()),
		},
	},
	RoleClearTimeline: {
		{
			Name:      "timeline_clear_icon",
			Selectors: []string{"button"},
			Match:     all(topAbove(timelineTop), hasIcon("delete_sweep", "clear_all")),
		},
		{
			Name:      "clear_label",
			Selectors: []string{"button"},
			Match:     anyOf(textEqualsFold("clear", "clear all", "clear timeline"), ariaLabelContainsFold("clear timeline")),
		},
	},
	RoleConfirmDialog: {
		{
			Name:      "dialog_confirm",
			Selectors: []string{"[role=dialog] button", "[role=alertdialog] button"},
			Match:     textEqualsFold("clear", "delete", "confirm", "ok", "yes"),
		},
	},
	RoleSettingsButton: {
		{
			Name:      "tune_icon",
			Selectors: []string{"button"},
			Match:     all(topAbove(promptAreaTop), hasIcon("tune")),
		},
		{
			Name:      "settings_label",
			Selectors: []string{"button"},
			Match:     anyOf(textEqualsFold("settings"), ariaLabelContainsFold("settings")),
		},
	},
	RoleOutputsSelector: {
		{
			Name:      "outputs_combobox",
			Selectors: []string{"[role=combobox]", "button"},
			Match:     textContainsFold("outputs per prompt"),
		},
	},
	RoleOutputsOption: {
		{
			Name:      "option_exact_count",
			Selectors: []string{"[role=option]", "li"},
			Match:     queryTextEquals(),
		},
		{
			Name:      "any_exact_count",
			Selectors: []string{"div", "span"},
			Match:     queryTextEquals(),
		},
	},
	RoleAddImage: {
		{
			Name:      "upload_affordance",
			Selectors: []string{"button"},
			Match:     anyOf(hasFileInput(), ariaLabelContainsFold("upload", "add image", "add ingredient")),
		},
		{
			Name:      "add_label",
			Selectors: []string{"button"},
			Match:     all(textEqualsFold("add", "+"), topAtMost(timelineTop)),
		},
		{
			Name:      "any_add_label",
			Selectors: []string{"button"},
			Match:     textEqualsFold("add", "+"),
		},
	},
	RoleFileInput: {
		{
			Name:      "file_input",
			Selectors: []string{"input[type=file]"},
			Match:     all(tagIn("input"), hasFileInput()),
		},
		{
			Name:      "file_input_host",
			Selectors: []string{"div", "label", "button"},
			Match:     hasFileInput(),
		},
	},
	RoleAspectRatioSelector: {
		{
			Name:      "ratio_combobox",
			Selectors: []string{"[role=combobox]"},
			Match:     textContainsFold("landscape", "portrait", "square"),
		},
		{
			Name:      "ratio_control",
			Selectors: []string{"button", "div"},
			Match:     all(textContainsFold("landscape", "portrait", "square"), widthBetween(0, modeMaxWidth)),
		},
	},
	RoleAspectRatioOption: {
		{
			Name:      "ratio_option",
			Selectors: []string{"[role=option]", "li"},
			Match:     queryTextContainsFold(),
		},
		{
			Name:      "ratio_text",
			Selectors: []string{"div", "span"},
			Match:     all(queryTextContainsFold(), not(ariaRole("combobox"))),
		},
	},
	RoleCropAndSave: {
		{
			Name:      "exact_label",
			Selectors: []string{"button"},
			Match:     textEquals("Crop and Save"),
		},
		{
			Name:      "contains_label",
			Selectors: []string{"button"},
			Match:     textContains("Crop and Save"),
		},
	},
	RolePromptInput: {
		{
			Name:      "docked_textarea",
			Selectors: []string{"textarea"},
			Match:     all(widthAbove(promptMinWidth), topAbove(promptAreaTop)),
		},
		{
			Name:      "wide_textarea",
			Selectors: []string{"textarea"},
			Match:     widthAbove(promptMinWidth),
		},
	},
	RoleGenerateButton: {
		{
			Name:      "arrow_icon",
			Selectors: []string{"button"},
			Match:     all(enabled(), hasIcon("arrow_forward")),
		},
		{
			Name:      "generate_label",
			Selectors: []string{"button"},
			Match:     all(enabled(), anyOf(textEqualsFold("generate", "create"), ariaLabelContainsFold("generate"))),
		},
	},
	RoleTimelineClip: {
		{
			Name:      "timeline_media",
			Selectors: []string{"div", "button"},
			Match:     all(topAbove(timelineTop), widthBetween(clipMinWidth, clipMaxWidth), htmlContains("<video", "<img")),
			Reduce:    Columns,
		},
	},
	RoleExtendButton: {
		{
			Name:      "extend_label",
			Selectors: []string{"button", "[role=menuitem]", "div", "span"},
			Match:     textEqualsFold("extend"),
		},
		{
			Name:      "timeline_add",
			Selectors: []string{"button"},
			Match:     all(topAbove(timelineTop), anyOf(textEquals("+", "add"), ariaLabelContainsFold("add clip", "extend"))),
		},
	},
	RoleExtendIndicator: {
		{
			Name:      "extend_placeholder",
			Selectors: []string{"textarea"},
			Match:     placeholderContainsFold("extend"),
		},
		{
			Name:      "extend_chip",
			Selectors: []string{"div", "span"},
			Match:     all(topAbove(promptAreaTop), leafText(chipMaxRunes), textContainsFold("extend"), not(textEqualsFold("extend"))),
		},
	},
	RoleReadyMarker: {
		{
			Name:      "add_to_scene",
			Selectors: []string{"button"},
			Match:     textContainsFold("add to scene"),
		},
		{
			Name:      "ready_icon",
			Selectors: []string{"button", "div"},
			Match:     hasIcon("check_circle"),
		},
	},
	RoleDurationReadout: {
		{
			Name:      "timeline_duration",
			Selectors: []string{"span", "div"},
			Match:     all(topAbove(timelineTop), textMatches(durationText)),
		},
	},
	RoleDownloadButton: {
		{
			Name:      "file_download_icon",
			Selectors: []string{"button"},
			Match:     all(topAbove(timelineTop), hasIcon("file_download")),
		},
		{
			Name:      "download_icon",
			Selectors: []string{"button"},
			Match:     all(topAbove(timelineTop), anyOf(hasIcon("download"), ariaLabelContainsFold("download"))),
		},
	},
	RoleQualityOption: {
		{
			Name:      "quality_label",
			Selectors: []string{"[role=menuitem]", "div", "span"},
			Match:     all(queryTextContains(), not(textContainsFold("credit"))),
		},
	},
	RoleDismiss: {
		{
			Name:      "dismiss_label",
			Selectors: []string{"button", "a", "span"},
			Match:     textEquals("Dismiss"),
		},
	},
}

// Columns orders elements left to right and collapses nested wrappers that
// share a column to the narrowest one.
func Columns(elements []entity.Element) []entity.Element {
	sorted := slices.Clone(elements)
	slices.SortStableFunc(sorted, func(a, b entity.Element) int {
		switch {
		case a.BoundingBox.X < b.BoundingBox.X:
			return -1
		case a.BoundingBox.X > b.BoundingBox.X:
			return 1
		default:
			return 0
		}
	})

	var out []entity.Element

	for _, el := range sorted {
		if n := len(out); n > 0 && el.BoundingBox.X-out[n-1].BoundingBox.X <= clipColumnSlack {
			if el.BoundingBox.Width < out[n-1].BoundingBox.Width {
				out[n-1] = el
			}

			continue
		}

		out = append(out, el)
	}

	return out
}

// Strategies returns the fallback chain of role.
func Strategies(role Role) []Strategy {
	return roles[role]
}

func (r Role) String() string {
	return strings.ReplaceAll(string(r), "_", " ")
}

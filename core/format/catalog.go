package format

// DefaultCatalog is the initial content format catalog installed by `admin seedformats`.
var DefaultCatalog = []NewFormat{
	{
		Key:            "transformation_reel",
		Title:          "Member Transformation Reel",
		Type:           TypeReel,
		Dimensions:     "1080x1920 (9:16)",
		Duration:       "15-30s",
		TotalRequired:  4,
		SetupPlanning:  "Pick a member with a visible before/after. Get written consent before filming.",
		ProductionTips: "Open on the result, cut to the journey. Keep captions short and burned in.",
		Examples:       []string{"Before/after split screen", "Day 1 vs day 90 lift"},
	},
	{
		Key:            "class_highlight_video",
		Title:          "Group Class Highlight",
		Type:           TypeVideo,
		Dimensions:     "1920x1080 (16:9)",
		Duration:       "30-60s",
		TotalRequired:  2,
		SetupPlanning:  "Schedule with the coach, film the busiest class of the week.",
		ProductionTips: "Mix wide shots with close-ups of the coach cueing. Use the class soundtrack.",
		Examples:       []string{"HIIT class energy", "Spin class finale"},
	},
	{
		Key:            "equipment_carousel",
		Title:          "Equipment Carousel",
		Type:           TypeCarousel,
		Dimensions:     "1080x1350 (4:5)",
		TotalRequired:  3,
		SetupPlanning:  "Clean the area and rack the weights before shooting.",
		ProductionTips: "One machine per slide, natural light, no people in frame.",
		Examples:       []string{"New squat racks", "Cardio deck tour"},
	},
	{
		Key:            "facility_photo",
		Title:          "Facility Photo",
		Type:           TypePhoto,
		Dimensions:     "1080x1080 (1:1)",
		TotalRequired:  12,
		SetupPlanning:  "Shoot at opening time when the floor is empty.",
		ProductionTips: "Shoot horizontally level, avoid mirrors reflecting the photographer.",
		Examples:       []string{"Reception", "Free weights area", "Locker rooms"},
	},
	{
		Key:            "coach_story",
		Title:          "Coach Story",
		Type:           TypeStory,
		Dimensions:     "1080x1920 (9:16)",
		Duration:       "up to 15s per frame",
		TotalRequired:  5,
		SetupPlanning:  "Ask a coach for a tip of the week.",
		ProductionTips: "Film selfie-style, talk to the camera, add the gym handle.",
		Examples:       []string{"Tip of the week", "Form check"},
	},
}

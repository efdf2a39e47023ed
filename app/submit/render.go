package submit

import (
	"strconv"

	"detectconsole/app/detect"
	"detectconsole/models"
)

// AggregateLabels counts labels by exact, case-sensitive match and keeps the
// order in which each label first appeared.
func AggregateLabels(labels []string) []models.LabelCount {
	rows := make([]models.LabelCount, 0, len(labels))
	index := make(map[string]int, len(labels))

	for _, label := range labels {
		if i, ok := index[label]; ok {
			rows[i].Count++
			continue
		}
		index[label] = len(rows)
		rows = append(rows, models.LabelCount{Label: label, Count: 1})
	}

	return rows
}

func preview(id string, video bool) models.Preview {
	if video {
		return models.Preview{Kind: models.MediaVideo, Src: detect.ResultPath(id), Controls: true}
	}
	return models.Preview{Kind: models.MediaImage, Src: detect.ResultPath(id)}
}

// Render maps a detection payload onto what the results region displays.
func Render(res models.DetectionResult) models.ResultView {
	return models.ResultView{
		ProcessingTime: res.ProcessingTime.String(),
		ObjectCount:    strconv.Itoa(res.ObjectCount),
		Original:       preview(res.Original, res.IsVideo),
		Result:         preview(res.Result, res.IsVideo),
		Objects:        AggregateLabels(res.DetectedObjects),
	}
}

package models

import (
	"bufio"
	"io"
	"strings"

	"github.com/nvr-ai/go-rknn/models/model"
	"github.com/pkg/errors"
)

// ErrUnknownFamily is returned when no label set is registered for a family.
var ErrUnknownFamily = errors.New("unknown model family")

// OutputClassSet ties a model family to its ordered labels.
type OutputClassSet struct {
	// Class set identifier.
	Family model.Family
	// Labels indexed by the class id the model emits.
	Labels []string
}

// COCOLabels are the 80 COCO object categories in training order.
var COCOLabels = []string{
	"person",
	"bicycle",
	"car",
	"motorcycle",
	"airplane",
	"bus",
	"train",
	"truck",
	"boat",
	"traffic light",
	"fire hydrant",
	"stop sign",
	"parking meter",
	"bench",
	"bird",
	"cat",
	"dog",
	"horse",
	"sheep",
	"cow",
	"elephant",
	"bear",
	"zebra",
	"giraffe",
	"backpack",
	"umbrella",
	"handbag",
	"tie",
	"suitcase",
	"frisbee",
	"skis",
	"snowboard",
	"sports ball",
	"kite",
	"baseball bat",
	"baseball glove",
	"skateboard",
	"surfboard",
	"tennis racket",
	"bottle",
	"wine glass",
	"cup",
	"fork",
	"knife",
	"spoon",
	"bowl",
	"banana",
	"apple",
	"sandwich",
	"orange",
	"broccoli",
	"carrot",
	"hot dog",
	"pizza",
	"donut",
	"cake",
	"chair",
	"couch",
	"potted plant",
	"bed",
	"dining table",
	"toilet",
	"tv",
	"laptop",
	"mouse",
	"remote",
	"keyboard",
	"cell phone",
	"microwave",
	"oven",
	"toaster",
	"sink",
	"refrigerator",
	"book",
	"clock",
	"vase",
	"scissors",
	"teddy bear",
	"hair drier",
	"toothbrush",
}

// YOLOClasses is the 80 COCO classes (no background).
// YOLO models index directly into this zero-based list.
var YOLOClasses = OutputClassSet{
	Family: model.ModelFamilyYOLO,
	Labels: COCOLabels,
}

// COCOClasses is the 80 COCO classes plus "__background__" at index 0.
var COCOClasses = OutputClassSet{
	Family: model.ModelFamilyCOCO,
	Labels: append([]string{"__background__"}, COCOLabels...),
}

// AllClassSets collects every OutputClassSet in one place.
var AllClassSets = []OutputClassSet{
	YOLOClasses,
	COCOClasses,
}

// LookupName returns the class name for a given family and index.
// If index is out of range, it returns an empty string.
func LookupName(family model.Family, idx int) string {
	for _, set := range AllClassSets {
		if set.Family == family {
			if idx >= 0 && idx < len(set.Labels) {
				return set.Labels[idx]
			}
			return ""
		}
	}
	return ""
}

// LookupIndex returns the class index of name within family.
func LookupIndex(family model.Family, name string) (int, error) {
	for _, set := range AllClassSets {
		if set.Family != family {
			continue
		}
		for i, label := range set.Labels {
			if label == name {
				return i, nil
			}
		}
		return -1, errors.Errorf("name %q not found in family %q", name, family)
	}
	return -1, errors.Wrapf(ErrUnknownFamily, "%q", family)
}

// LoadLabels reads a label list with one name per line, the format exported next to
// converted models. Blank lines are skipped and surrounding whitespace is trimmed.
//
// Arguments:
//   - r: The label file contents.
//
// Returns:
//   - Labels indexed by class id.
//   - An error if reading fails or the list is empty.
func LoadLabels(r io.Reader) ([]string, error) {
	var labels []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read labels")
	}
	if len(labels) == 0 {
		return nil, errors.New("label list is empty")
	}
	return labels, nil
}

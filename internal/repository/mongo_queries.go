package repository

import (
	"regexp"
	"strings"

	"github.com/yukikurage/taskdesk-api/internal/constants"
	"github.com/yukikurage/taskdesk-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// taskListFilter builds the query document for TaskFilter.
func taskListFilter(filter TaskFilter) bson.M {
	query := bson.M{}
	if filter.VisibleTo != nil {
		query["$or"] = bson.A{
			bson.M{"createdBy": *filter.VisibleTo},
			bson.M{"assignedTo": *filter.VisibleTo},
		}
	}
	if filter.Status != nil {
		query["status"] = string(*filter.Status)
	}
	if filter.Priority != nil {
		query["priority"] = string(*filter.Priority)
	}
	return query
}

// taskListSort builds the sort document for a dueDateOrder value. Unknown
// orders fall through to the tie-breakers only.
func taskListSort(order string) bson.D {
	sort := bson.D{}
	switch order {
	case constants.SortAsc:
		sort = append(sort, bson.E{Key: "dueDate", Value: 1})
	case constants.SortDesc:
		sort = append(sort, bson.E{Key: "dueDate", Value: -1})
	}
	return append(sort,
		bson.E{Key: "createdAt", Value: 1},
		bson.E{Key: "_id", Value: 1},
	)
}

// userSearchFilter matches name or email case-insensitively. The query is
// matched literally.
func userSearchFilter(query string) bson.M {
	q := strings.TrimSpace(query)
	if q == "" {
		return bson.M{}
	}
	pattern := regexp.QuoteMeta(q)
	return bson.M{
		"$or": bson.A{
			bson.M{"name": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"email": bson.M{"$regex": pattern, "$options": "i"}},
		},
	}
}

// assignmentCountPipeline groups tasks by assignee for the given users,
// counting all tasks and pending ones.
func assignmentCountPipeline(userIDs []string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"assignedTo": bson.M{"$in": userIDs}}}},
		{{Key: "$unwind", Value: "$assignedTo"}},
		{{Key: "$match", Value: bson.M{"assignedTo": bson.M{"$in": userIDs}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$assignedTo",
			"total": bson.M{"$sum": 1},
			"pending": bson.M{"$sum": bson.M{
				"$cond": bson.A{
					bson.M{"$eq": bson.A{"$status", string(models.TaskStatusPending)}},
					1,
					0,
				},
			}},
		}}},
	}
}

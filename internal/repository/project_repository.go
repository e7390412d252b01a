package repository

import (
	"context"
	"fmt"

	"github.com/davlet61/costwatch/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ProjectRepository reads project state for the health scan and the live
// sync bridge. Project writes belong to the dashboard's CRUD layer.
type ProjectRepository struct {
	collection *mongo.Collection
}

func NewProjectRepository(db *mongo.Database) *ProjectRepository {
	return &ProjectRepository{
		collection: db.Collection("projects"),
	}
}

// GetActiveProjects returns every project that is not in a terminal status.
func (r *ProjectRepository) GetActiveProjects(ctx context.Context) ([]models.Project, error) {
	filter := bson.M{
		"status": bson.M{"$nin": bson.A{models.ProjectStatusCompleted, models.ProjectStatusRejected}},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active projects: %v", err)
	}
	defer cursor.Close(ctx)

	var projects []models.Project
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %v", err)
	}
	return projects, nil
}

// GetAllProjects returns every project, for live-sync snapshots.
func (r *ProjectRepository) GetAllProjects(ctx context.Context) ([]models.Project, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch projects: %v", err)
	}
	defer cursor.Close(ctx)

	var projects []models.Project
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %v", err)
	}
	return projects, nil
}

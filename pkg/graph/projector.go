package graph

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ActivityProjector mirrors activities and their declared hierarchy into the
// graph. Nodes are keyed on the IATI identifier so relationships resolve even
// when the counterpart activity has not been ingested yet.
type ActivityProjector struct {
	client *Client
	logger ectologger.Logger
}

// NewActivityProjector creates a new activity projector
func NewActivityProjector(client *Client, logger ectologger.Logger) *ActivityProjector {
	return &ActivityProjector{
		client: client,
		logger: logger,
	}
}

// ProjectActivity upserts the activity node and its relationship edges.
func (p *ActivityProjector) ProjectActivity(ctx context.Context, act *models.Activity, related []*models.RelatedActivity) error {
	ctx, span := tracing.StartSpan(ctx, "graph.ActivityProjector.ProjectActivity")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"activity_id":     act.ID,
		"iati_identifier": act.IATIIdentifier,
	})

	props := map[string]any{
		"id":              act.ID,
		"iati_identifier": act.IATIIdentifier,
		"dataset_id":      act.DatasetID,
		"hierarchy":       act.Hierarchy,
		"humanitarian":    act.Humanitarian,
	}
	if act.ActivityStatus != nil {
		props["activity_status"] = *act.ActivityStatus
	}
	if act.StartDate != nil {
		props["start_date"] = act.StartDate.UTC().Format("2006-01-02")
	}
	if act.EndDate != nil {
		props["end_date"] = act.EndDate.UTC().Format("2006-01-02")
	}

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MERGE (a:Activity {iati_identifier: $iati_identifier})
			SET a = $props
			RETURN a
		`, map[string]any{
			"iati_identifier": act.IATIIdentifier,
			"props":           props,
		})
		if err != nil {
			return nil, err
		}
		if _, err := result.Consume(ctx); err != nil {
			return nil, err
		}

		// Old edges go first so relationships the document dropped disappear.
		result, err = tx.Run(ctx, `
			MATCH (a:Activity {iati_identifier: $iati_identifier})-[r:PARENT_OF|CHILD_OF|RELATED_TO]->()
			DELETE r
		`, map[string]any{"iati_identifier": act.IATIIdentifier})
		if err != nil {
			return nil, err
		}
		if _, err := result.Consume(ctx); err != nil {
			return nil, err
		}

		for _, rel := range related {
			cypher := relationshipCypher(rel.Type)
			result, err = tx.Run(ctx, cypher, map[string]any{
				"iati_identifier": act.IATIIdentifier,
				"ref":             rel.Ref,
				"rel_type":        rel.Type,
			})
			if err != nil {
				return nil, err
			}
			if _, err := result.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to project activity into graph")
		return err
	}

	log.Debug("Projected activity into graph")
	return nil
}

// DeleteActivity removes the activity node and every edge attached to it.
func (p *ActivityProjector) DeleteActivity(ctx context.Context, iatiIdentifier string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.ActivityProjector.DeleteActivity")
	defer span.End()

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MATCH (a:Activity {iati_identifier: $iati_identifier})
			DETACH DELETE a
		`, map[string]any{"iati_identifier": iatiIdentifier})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"iati_identifier": iatiIdentifier,
		}).Error("Failed to delete activity from graph")
		return err
	}
	return nil
}

// relationshipCypher maps the declared relationship type onto a typed edge.
// A parent declaration means the referenced activity is this one's parent, so
// the edge points from the referenced node down to this one.
func relationshipCypher(relType string) string {
	switch relType {
	case models.RelatedActivityParent:
		return `
			MATCH (a:Activity {iati_identifier: $iati_identifier})
			MERGE (b:Activity {iati_identifier: $ref})
			MERGE (b)-[:PARENT_OF]->(a)
			MERGE (a)-[:CHILD_OF]->(b)
		`
	case models.RelatedActivityChild:
		return `
			MATCH (a:Activity {iati_identifier: $iati_identifier})
			MERGE (b:Activity {iati_identifier: $ref})
			MERGE (a)-[:PARENT_OF]->(b)
			MERGE (b)-[:CHILD_OF]->(a)
		`
	default:
		return `
			MATCH (a:Activity {iati_identifier: $iati_identifier})
			MERGE (b:Activity {iati_identifier: $ref})
			MERGE (a)-[:RELATED_TO {type: $rel_type}]->(b)
		`
	}
}

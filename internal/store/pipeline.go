package store

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Pipeline builds an aggregation out of match, join, derive and project
// stages. The stages mirror relational operations so the same query shape
// can be expressed against any store with equivalent joins.
type Pipeline struct {
	stages mongo.Pipeline
}

// Join describes a left outer join into As. When Pipeline is set it runs
// against every joined document.
type Join struct {
	From         string
	LocalField   string
	ForeignField string
	As           string
	Pipeline     *Pipeline
}

func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Match filters documents.
func (p *Pipeline) Match(filter bson.D) *Pipeline {
	p.stages = append(p.stages, bson.D{{Key: "$match", Value: filter}})
	return p
}

// Join adds a $lookup stage.
func (p *Pipeline) Join(j Join) *Pipeline {
	lookup := bson.D{
		{Key: "from", Value: j.From},
		{Key: "localField", Value: j.LocalField},
		{Key: "foreignField", Value: j.ForeignField},
		{Key: "as", Value: j.As},
	}
	if j.Pipeline != nil {
		lookup = append(lookup, bson.E{Key: "pipeline", Value: j.Pipeline.Build()})
	}
	p.stages = append(p.stages, bson.D{{Key: "$lookup", Value: lookup}})
	return p
}

// Derive adds computed fields.
func (p *Pipeline) Derive(fields bson.D) *Pipeline {
	p.stages = append(p.stages, bson.D{{Key: "$addFields", Value: fields}})
	return p
}

// Project keeps only the whitelisted fields (plus _id).
func (p *Pipeline) Project(fields ...string) *Pipeline {
	proj := make(bson.D, 0, len(fields))
	for _, f := range fields {
		proj = append(proj, bson.E{Key: f, Value: 1})
	}
	p.stages = append(p.stages, bson.D{{Key: "$project", Value: proj}})
	return p
}

// Build returns the stages in order.
func (p *Pipeline) Build() mongo.Pipeline {
	out := make(mongo.Pipeline, len(p.stages))
	copy(out, p.stages)
	return out
}

// Expression helpers for Derive.

func Size(field string) bson.D {
	return bson.D{{Key: "$size", Value: "$" + field}}
}

func First(field string) bson.D {
	return bson.D{{Key: "$first", Value: "$" + field}}
}

// Contains evaluates to true when value is an element of the array field.
func Contains(value any, field string) bson.D {
	return bson.D{{Key: "$cond", Value: bson.D{
		{Key: "if", Value: bson.D{{Key: "$in", Value: bson.A{value, "$" + field}}}},
		{Key: "then", Value: true},
		{Key: "else", Value: false},
	}}}
}

// Package mongodb provides a generic document repository on top of the
// official MongoDB driver.
//
// A Repository is bound to one collection and parameterized by the entity
// struct T, its pointer type PT and the identifier type ID:
//
//	type Order struct {
//		mongodb.MongoEntity `bson:",inline"`
//		Status              string `bson:"status"`
//	}
//
//	repo, err := mongodb.NewFromURL[Order, *Order, string](ctx, "", "", "")
//	id, err := repo.Save(ctx, &Order{Status: "new"})
//	order, err := repo.Get(ctx, id)
//
// Blank database and collection names default to "{TypeName}DB" and
// "{TypeName}"; a blank URL defaults to mongodb://localhost.
//
// Identifier encoding is chosen per repository through a Mapping
// (WithMapping, WithMappingRegistry or an entity implementing
// MappingProvider). The mapping is fixed when the repository is built.
//
// Single-document reads return nil, nil when nothing matches. Driver errors
// are returned wrapped with the operation name and stay inspectable with
// errors.Is and errors.As. The package never retries.
package mongodb

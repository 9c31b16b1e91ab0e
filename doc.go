// Package imghost brokers owner-scoped image uploads between clients and an
// object store, and keeps a metadata index consistent with what the store
// actually holds.
//
// Uploads are two-phase. Initiate hands the client a handle and a
// time-bounded upload URL; the client writes the bytes straight to the
// store; Finalize records the object. Nothing is persisted in between.
//
// # Key Components
//
//   - NormalizeFilename: Pure function producing storage and URL safe names
//   - ObjectStore: Gateway to the object store (S3, MinIO, local filesystem)
//   - MetadataIndex: Record and per-owner listing store (Redis, PostgreSQL, SQLite)
//   - UploadCoordinator: Initiate and Finalize
//   - GalleryResolver: Owner listing with reference repair
//   - Deleter: Ownership-checked, storage-first deletion
//   - Service: Facade composing the above for transports
//
// # Example Usage
//
//	service, err := imghost.NewService(store, index, owners, imghost.ServiceConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	handle, err := service.Initiate(ctx, "u1", "My Photo.JPG", "image/jpeg")
//	// client PUTs the bytes to handle.UploadURL
//	res, err := service.Finalize(ctx, "u1", imghost.FinalizeRequest{
//	    ID:          handle.ID,
//	    StorageKey:  handle.StorageKey,
//	    DisplayName: handle.DisplayName,
//	    ContentType: "image/jpeg",
//	})
//
// See the http package for the REST API and the database and storage
// packages for backend implementations.
package imghost

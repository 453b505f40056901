/*
Package userdir provides a directory of user accounts.

A user is identified by his/her email. The Directory supports:

  1. Creating a user with Directory.Create(). The password is stored as a
     bcrypt hash, the plaintext is never persisted.
  2. Looking up a user by email with Directory.FindOne().
  3. Listing users page by page with Directory.FindAll().
  4. Storing and clearing the refresh token of a session with
     Directory.UpdateRefreshToken() and Directory.Logout().
  5. Changing and checking passwords with Directory.UpdatePassword() and
     Directory.VerifyPassword().
  6. Wiping all users with Directory.DeleteAll().

A user not found is not an error: lookups return a nil user.

The Directory holds no state of its own, records live in a Store.
MongoStore uses MongoDB, accessed via the official mongo-go driver.
MemoryStore keeps records in memory, and package redisstore provides a
Redis backed Store.

*/
package userdir
